package convert

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/tripbench/tripbench/internal/dataset"
	"github.com/tripbench/tripbench/pkg/types"
)

func TestParquetToCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	parquetPath := filepath.Join(dir, "trips.parquet")
	csvPath := filepath.Join(dir, "trips.csv")

	base := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	trips := make([]types.Trip, 50)
	for i := range trips {
		trips[i] = types.Trip{
			VendorID:       int64(1 + i%2),
			PickupTime:     base.Add(time.Duration(i) * 17 * time.Minute),
			DropoffTime:    base.Add(time.Duration(i)*17*time.Minute + 25*time.Minute),
			PassengerCount: float64(1 + i%3),
			TripDistance:   1.5 + float64(i)*0.1,
			FareAmount:     6.0 + float64(i)*0.25,
			TipAmount:      float64(i) * 0.05,
			TotalAmount:    6.0 + float64(i)*0.3,
		}
	}
	if err := dataset.WriteParquet(parquetPath, trips); err != nil {
		t.Fatalf("write parquet: %v", err)
	}

	n, err := ParquetToCSV(parquetPath, csvPath)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if n != 50 {
		t.Errorf("converted rows = %d, want 50", n)
	}

	table, err := dataset.Load(csvPath, nil)
	if err != nil {
		t.Fatalf("load converted CSV: %v", err)
	}
	if table.Len() != 50 {
		t.Fatalf("reloaded rows = %d, want 50", table.Len())
	}
	for i, got := range table.Trips {
		want := trips[i]
		if !got.PickupTime.Equal(want.PickupTime) {
			t.Errorf("row %d pickup = %v, want %v", i, got.PickupTime, want.PickupTime)
		}
		if math.Abs(got.FareAmount-want.FareAmount) > 1e-9 {
			t.Errorf("row %d fare = %f, want %f", i, got.FareAmount, want.FareAmount)
		}
		if got.VendorID != want.VendorID {
			t.Errorf("row %d vendor = %d, want %d", i, got.VendorID, want.VendorID)
		}
	}
}

func TestParquetToCSVMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := ParquetToCSV(filepath.Join(dir, "absent.parquet"), filepath.Join(dir, "out.csv"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}
