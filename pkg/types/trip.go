// Package types provides core data types for tripbench.
package types

import "time"

// Trip represents a single yellow-taxi trip record.
//
// The parquet tags follow the TLC trip-record column names so the struct
// maps directly onto the published monthly files. Columns the benchmark
// does not read are declared optional so schema drift between months does
// not break loading.
type Trip struct {
	// VendorID identifies the provider that supplied the record
	VendorID int64 `parquet:"VendorID,optional" json:"vendor_id"`

	// PickupTime is when the meter was engaged
	PickupTime time.Time `parquet:"tpep_pickup_datetime" json:"tpep_pickup_datetime"`

	// DropoffTime is when the meter was disengaged
	DropoffTime time.Time `parquet:"tpep_dropoff_datetime,optional" json:"tpep_dropoff_datetime"`

	// PassengerCount is the driver-entered passenger count
	PassengerCount float64 `parquet:"passenger_count,optional" json:"passenger_count"`

	// TripDistance is the elapsed trip distance in miles
	TripDistance float64 `parquet:"trip_distance,optional" json:"trip_distance"`

	// FareAmount is the time-and-distance fare calculated by the meter
	FareAmount float64 `parquet:"fare_amount" json:"fare_amount"`

	// TipAmount is the credit-card tip (cash tips are not recorded)
	TipAmount float64 `parquet:"tip_amount,optional" json:"tip_amount"`

	// TotalAmount is the total charged to the passenger
	TotalAmount float64 `parquet:"total_amount,optional" json:"total_amount"`
}

// PickupHour returns the hour-of-day component of the pickup timestamp.
func (t Trip) PickupHour() int {
	return t.PickupTime.Hour()
}

// PickupDate returns the pickup date formatted as YYYY-MM-DD.
func (t Trip) PickupDate() string {
	return t.PickupTime.Format("2006-01-02")
}

// Table is an ordered in-memory collection of trips loaded from a single
// source file. The schema is fixed by the source; tripbench never mutates
// it beyond deriving the pickup hour.
type Table struct {
	// Source is the path the table was loaded from
	Source string

	// Trips holds the rows in file order (or sampled order)
	Trips []Trip
}

// Len returns the number of rows in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Trips)
}
