package dataset

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/pkg/types"
)

// writeTestCSV writes a CSV fixture with n trips spread across all 24
// pickup hours and returns its path.
func writeTestCSV(t *testing.T, n int) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString(strings.Join(types.CSVColumns, ","))
	sb.WriteString("\n")
	for i := 0; i < n; i++ {
		hour := i % 24
		fmt.Fprintf(&sb, "1,2024-01-%02d %02d:15:00,2024-01-%02d %02d:45:00,1,2.5,%0.2f,1.50,%0.2f\n",
			1+i%28, hour, 1+i%28, hour, 10.0+float64(i%40), 15.0+float64(i%40))
	}

	path := filepath.Join(t.TempDir(), "trips.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := writeTestCSV(t, 240)

	table, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() != 240 {
		t.Fatalf("expected 240 rows, got %d", table.Len())
	}
	if table.Source != path {
		t.Errorf("source = %q, want %q", table.Source, path)
	}

	first := table.Trips[0]
	if first.PickupHour() != 0 {
		t.Errorf("first pickup hour = %d, want 0", first.PickupHour())
	}
	if first.FareAmount != 10.0 {
		t.Errorf("first fare = %v, want 10.0", first.FareAmount)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"), nil)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if code := errors.GetCode(err); code != errors.CodeFileMissing {
		t.Errorf("code = %q, want %q", code, errors.CodeFileMissing)
	}
}

func TestLoad_EmptyDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	header := strings.Join(types.CSVColumns, ",") + "\n"
	if err := os.WriteFile(path, []byte(header), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path, nil)
	if err == nil {
		t.Fatal("expected error for zero-row file")
	}
	if code := errors.GetCode(err); code != errors.CodeEmptyDataset {
		t.Errorf("code = %q, want %q", code, errors.CodeEmptyDataset)
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.xlsx")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path, nil)
	if code := errors.GetCode(err); code != errors.CodeParseFailed {
		t.Errorf("code = %q, want %q (err=%v)", code, errors.CodeParseFailed, err)
	}
}

func TestLoad_InvalidSample(t *testing.T) {
	path := writeTestCSV(t, 10)
	_, err := Load(path, &types.SampleSpec{Fraction: 1.5})
	if code := errors.GetCode(err); code != errors.CodeSampleInvalid {
		t.Errorf("code = %q, want %q (err=%v)", code, errors.CodeSampleInvalid, err)
	}
}

func TestLoad_WithSample(t *testing.T) {
	path := writeTestCSV(t, 2000)
	table, err := Load(path, &types.SampleSpec{Fraction: 0.5, Seed: 1})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() == 0 || table.Len() >= 2000 {
		t.Fatalf("sampled size %d not in (0, 2000)", table.Len())
	}
}

func TestProbe(t *testing.T) {
	path := writeTestCSV(t, 3)
	if err := Probe(path); err != nil {
		t.Fatalf("Probe on valid file: %v", err)
	}

	err := Probe(filepath.Join(t.TempDir(), "absent.csv"))
	var te *errors.TripbenchError
	if !stderrors.As(err, &te) || te.Code != errors.CodeFileMissing {
		t.Errorf("Probe missing file: %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(empty, []byte(strings.Join(types.CSVColumns, ",")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if code := errors.GetCode(Probe(empty)); code != errors.CodeEmptyDataset {
		t.Errorf("Probe empty file code = %q", code)
	}
}
