// Package partition provides SQLite micro-partitions for the partitioned
// engine: hash routing of trips to shards, partition file construction,
// and compressed metadata sidecars.
package partition

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tripbench/tripbench/pkg/types"
)

// TableName is the trips table inside every partition file.
const TableName = "trips"

// Info contains metadata about a created partition.
type Info struct {
	PartitionID string
	Shard       int
	SQLitePath  string
	MetaPath    string
	RowCount    int64
	SizeBytes   int64
	MinHour     int
	MaxHour     int
	CreatedAt   time.Time
}

// Builder creates SQLite micro-partitions from trip rows.
type Builder struct {
	outputDir string
}

// NewBuilder creates a new partition builder writing under outputDir.
func NewBuilder(outputDir string) *Builder {
	return &Builder{outputDir: outputDir}
}

// Build creates one partition file holding the given shard's trips.
// The pickup hour is stored as a dedicated indexed column so the
// per-partition aggregation never re-derives it at scan time.
func (b *Builder) Build(ctx context.Context, trips []types.Trip, shard int) (*Info, error) {
	if len(trips) == 0 {
		return nil, fmt.Errorf("partition: cannot build partition with empty rows")
	}

	partitionID := fmt.Sprintf("trips:%03d:%s", shard, uuid.New().String()[:8])
	createdAt := time.Now()

	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("partition: failed to create output directory: %w", err)
	}

	sqlitePath := filepath.Clean(filepath.Join(b.outputDir, fmt.Sprintf("%s.sqlite", partitionID)))

	db, err := sql.Open("sqlite3", sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to create SQLite database: %w", err)
	}
	defer db.Close()

	// WAL during the build, then checkpoint back so the file is a single
	// self-contained object for upload.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("partition: failed to set journal mode: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
		CREATE TABLE %s (
			pickup_time INTEGER NOT NULL,
			hour INTEGER NOT NULL,
			fare_amount REAL NOT NULL,
			trip_distance REAL,
			tip_amount REAL,
			total_amount REAL
		)
	`, TableName)
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("partition: failed to create trips table: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE INDEX idx_%s_hour ON %s(hour)", TableName, TableName)); err != nil {
		return nil, fmt.Errorf("partition: failed to create index: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertSQL := fmt.Sprintf(
		`INSERT INTO %s (pickup_time, hour, fare_amount, trip_distance, tip_amount, total_amount) VALUES (?, ?, ?, ?, ?, ?)`,
		TableName)
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	minHour, maxHour := 24, -1
	for _, trip := range trips {
		hour := trip.PickupHour()
		if hour < minHour {
			minHour = hour
		}
		if hour > maxHour {
			maxHour = hour
		}

		if _, err := stmt.ExecContext(ctx,
			trip.PickupTime.UnixNano(),
			hour,
			trip.FareAmount,
			trip.TripDistance,
			trip.TipAmount,
			trip.TotalAmount,
		); err != nil {
			return nil, fmt.Errorf("partition: failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("partition: failed to commit: %w", err)
	}

	// Fold the WAL back into the main file before it is uploaded.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=DELETE"); err != nil {
		return nil, fmt.Errorf("partition: failed to checkpoint: %w", err)
	}
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("partition: failed to close database: %w", err)
	}

	stat, err := os.Stat(sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("partition: failed to stat partition file: %w", err)
	}

	info := &Info{
		PartitionID: partitionID,
		Shard:       shard,
		SQLitePath:  sqlitePath,
		RowCount:    int64(len(trips)),
		SizeBytes:   stat.Size(),
		MinHour:     minHour,
		MaxHour:     maxHour,
		CreatedAt:   createdAt,
	}

	metaPath, err := WriteMeta(b.outputDir, info)
	if err != nil {
		return nil, err
	}
	info.MetaPath = metaPath

	return info, nil
}
