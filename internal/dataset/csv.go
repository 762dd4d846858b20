package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/pkg/types"
)

// readCSV decodes a CSV export of the trip table. The header row maps
// column positions; unknown columns are skipped.
func readCSV(path string) ([]types.Trip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataSourceError(errors.CodeFileMissing,
			fmt.Sprintf("open CSV file %s", path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("read CSV header of %s", path), err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	if _, ok := cols[types.ColumnPickupDatetime]; !ok {
		return nil, errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("CSV file %s is missing column %s", path, types.ColumnPickupDatetime), nil)
	}
	if _, ok := cols[types.ColumnFareAmount]; !ok {
		return nil, errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("CSV file %s is missing column %s", path, types.ColumnFareAmount), nil)
	}

	var trips []types.Trip
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewDataSourceError(errors.CodeParseFailed,
				fmt.Sprintf("read CSV record in %s", path), err)
		}

		trip, err := parseRecord(record, cols)
		if err != nil {
			return nil, errors.NewDataSourceError(errors.CodeParseFailed,
				fmt.Sprintf("parse CSV record in %s", path), err)
		}
		trips = append(trips, trip)
	}

	return trips, nil
}

// probeCSV checks that the file has a header and at least one data row.
func probeCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.NewDataSourceError(errors.CodeFileMissing,
			fmt.Sprintf("open CSV file %s", path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if _, err := reader.Read(); err != nil {
		return errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("read CSV header of %s", path), err)
	}
	if _, err := reader.Read(); err != nil {
		return errors.NewDataSourceError(errors.CodeEmptyDataset,
			fmt.Sprintf("dataset file %s has zero rows", path), err)
	}
	return nil
}

func parseRecord(record []string, cols map[string]int) (types.Trip, error) {
	var trip types.Trip
	var err error

	if trip.PickupTime, err = parseTime(field(record, cols, types.ColumnPickupDatetime)); err != nil {
		return trip, fmt.Errorf("%s: %w", types.ColumnPickupDatetime, err)
	}
	if v := field(record, cols, types.ColumnDropoffDatetime); v != "" {
		if trip.DropoffTime, err = parseTime(v); err != nil {
			return trip, fmt.Errorf("%s: %w", types.ColumnDropoffDatetime, err)
		}
	}
	if trip.FareAmount, err = parseFloat(field(record, cols, types.ColumnFareAmount)); err != nil {
		return trip, fmt.Errorf("%s: %w", types.ColumnFareAmount, err)
	}

	// The remaining numeric columns are optional.
	trip.PassengerCount, _ = parseFloat(field(record, cols, types.ColumnPassengerCount))
	trip.TripDistance, _ = parseFloat(field(record, cols, types.ColumnTripDistance))
	trip.TipAmount, _ = parseFloat(field(record, cols, types.ColumnTipAmount))
	trip.TotalAmount, _ = parseFloat(field(record, cols, types.ColumnTotalAmount))
	if v := field(record, cols, types.ColumnVendorID); v != "" {
		trip.VendorID, _ = strconv.ParseInt(v, 10, 64)
	}

	return trip, nil
}

func field(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(types.TimestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
