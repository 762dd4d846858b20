package types

// Canonical TLC column names used across the dataset source, the
// aggregation recipe, and the collaborators.
const (
	ColumnPickupDatetime  = "tpep_pickup_datetime"
	ColumnDropoffDatetime = "tpep_dropoff_datetime"
	ColumnPassengerCount  = "passenger_count"
	ColumnTripDistance    = "trip_distance"
	ColumnFareAmount      = "fare_amount"
	ColumnTipAmount       = "tip_amount"
	ColumnTotalAmount     = "total_amount"
	ColumnVendorID        = "VendorID"
)

// CSVColumns is the header order used when trips are written to or read
// from CSV files.
var CSVColumns = []string{
	ColumnVendorID,
	ColumnPickupDatetime,
	ColumnDropoffDatetime,
	ColumnPassengerCount,
	ColumnTripDistance,
	ColumnFareAmount,
	ColumnTipAmount,
	ColumnTotalAmount,
}

// TimestampLayout is the wall-clock layout used for timestamps in CSV
// files, matching the TLC CSV exports.
const TimestampLayout = "2006-01-02 15:04:05"
