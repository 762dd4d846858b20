// Package dataset provides the dataset source: loading the trip table
// from a columnar file, optionally down-sampled by a fraction.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/pkg/types"
)

// Load reads the full trip table from path. If sample is non-nil the
// table is reduced to approximately sample.Fraction × N rows by uniform
// selection without replacement.
func Load(path string, sample *types.SampleSpec) (*types.Table, error) {
	if sample != nil {
		if err := sample.Validate(); err != nil {
			return nil, errors.NewDataSourceError(errors.CodeSampleInvalid, "invalid sample spec", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewDataSourceError(errors.CodeFileMissing,
			fmt.Sprintf("dataset file %s", path), err)
	}
	if info.IsDir() {
		return nil, errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("dataset path %s is a directory", path), nil)
	}

	var trips []types.Trip
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		trips, err = readParquet(path)
	case ".csv":
		trips, err = readCSV(path)
	default:
		return nil, errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("unsupported dataset format %q", ext), nil)
	}
	if err != nil {
		return nil, err
	}

	if len(trips) == 0 {
		return nil, errors.NewDataSourceError(errors.CodeEmptyDataset,
			fmt.Sprintf("dataset file %s has zero rows", path), nil)
	}

	if sample != nil && sample.Fraction < 1 {
		trips = Sample(trips, *sample)
	}

	return &types.Table{Source: path, Trips: trips}, nil
}

// Probe verifies that the dataset at path exists, is readable, and has at
// least one row. It is used as a preflight check before the benchmark
// matrix starts, so that a fatal data-source problem aborts the run
// before any cell executes.
func Probe(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewDataSourceError(errors.CodeFileMissing,
			fmt.Sprintf("dataset file %s", path), err)
	}
	if info.IsDir() {
		return errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("dataset path %s is a directory", path), nil)
	}
	if info.Size() == 0 {
		return errors.NewDataSourceError(errors.CodeEmptyDataset,
			fmt.Sprintf("dataset file %s is empty", path), nil)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return probeParquet(path)
	case ".csv":
		return probeCSV(path)
	default:
		return errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("unsupported dataset format %q", ext), nil)
	}
}
