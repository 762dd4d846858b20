// Package convert rewrites parquet trip files as CSV with the canonical
// TLC column order.
package convert

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/tripbench/tripbench/internal/dataset"
	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/pkg/types"
)

// ParquetToCSV reads a parquet trip file and writes it as CSV. Returns
// the number of rows written.
func ParquetToCSV(parquetPath, csvPath string) (int, error) {
	table, err := dataset.Load(parquetPath, nil)
	if err != nil {
		return 0, err
	}
	if err := WriteCSV(csvPath, table.Trips); err != nil {
		return 0, err
	}
	return table.Len(), nil
}

// WriteCSV writes trips to a CSV file with the canonical header.
func WriteCSV(path string, trips []types.Trip) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewExportError(fmt.Sprintf("failed to create CSV file %s", path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(types.CSVColumns); err != nil {
		return errors.NewExportError("failed to write CSV header", err)
	}

	for i, trip := range trips {
		record := []string{
			strconv.FormatInt(trip.VendorID, 10),
			trip.PickupTime.Format(types.TimestampLayout),
			trip.DropoffTime.Format(types.TimestampLayout),
			strconv.FormatFloat(trip.PassengerCount, 'f', -1, 64),
			strconv.FormatFloat(trip.TripDistance, 'f', -1, 64),
			strconv.FormatFloat(trip.FareAmount, 'f', -1, 64),
			strconv.FormatFloat(trip.TipAmount, 'f', -1, 64),
			strconv.FormatFloat(trip.TotalAmount, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return errors.NewExportError(fmt.Sprintf("failed to write CSV row %d", i), err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.NewExportError("failed to flush CSV output", err)
	}
	return nil
}
