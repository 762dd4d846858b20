package dataset

import (
	"fmt"
	"io"
	"os"

	"github.com/segmentio/parquet-go"

	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/pkg/types"
)

// parquetReadBatch is the number of rows decoded per reader call.
const parquetReadBatch = 8192

// readParquet decodes the whole parquet file into trip rows.
func readParquet(path string) ([]types.Trip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataSourceError(errors.CodeFileMissing,
			fmt.Sprintf("open parquet file %s", path), err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[types.Trip](f)
	defer reader.Close()

	trips := make([]types.Trip, 0, reader.NumRows())
	buf := make([]types.Trip, parquetReadBatch)
	for {
		n, err := reader.Read(buf)
		trips = append(trips, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewDataSourceError(errors.CodeParseFailed,
				fmt.Sprintf("decode parquet file %s", path), err)
		}
	}

	return trips, nil
}

// probeParquet checks the parquet footer for a non-zero row count without
// decoding any row groups.
func probeParquet(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.NewDataSourceError(errors.CodeFileMissing,
			fmt.Sprintf("open parquet file %s", path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.NewDataSourceError(errors.CodeFileMissing,
			fmt.Sprintf("stat parquet file %s", path), err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("read parquet footer of %s", path), err)
	}
	if pf.NumRows() == 0 {
		return errors.NewDataSourceError(errors.CodeEmptyDataset,
			fmt.Sprintf("dataset file %s has zero rows", path), nil)
	}
	return nil
}

// WriteParquet writes trips to a parquet file. Used by the converter's
// round-trip tests and by tooling that prepares fixture datasets.
func WriteParquet(path string, trips []types.Trip) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("create parquet file %s", path), err)
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[types.Trip](f)
	if _, err := writer.Write(trips); err != nil {
		return errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("write parquet file %s", path), err)
	}
	if err := writer.Close(); err != nil {
		return errors.NewDataSourceError(errors.CodeParseFailed,
			fmt.Sprintf("finalize parquet file %s", path), err)
	}
	return nil
}
