package partitioned

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tripbench/tripbench/internal/dataset"
	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/internal/partition"
	"github.com/tripbench/tripbench/internal/recipe"
	"github.com/tripbench/tripbench/pkg/types"
)

// frame is a lazy handle over a dataset path. The plan runs once, on
// the first Aggregate or RowCount, and its result and row count are
// cached for every later call on the same frame.
type frame struct {
	session *session
	path    string
	sample  *types.SampleSpec

	mu           sync.Mutex
	materialized bool
	result       types.AggregationResult
	rowCount     int64
}

func (f *frame) Source() string {
	return f.path
}

// materialize runs the full pipeline: read and sample the source, route
// rows into micro-partitions, stage each partition through the object
// store, then scan all partitions in parallel and merge their partial
// aggregates.
func (f *frame) materialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.materialized {
		return nil
	}

	table, err := dataset.Load(f.path, f.sample)
	if err != nil {
		return err
	}

	partials, err := f.runPlan(ctx, table.Trips)
	if err != nil {
		return err
	}

	f.result = recipe.Finalize(partials)
	f.rowCount = int64(table.Len())
	f.materialized = true
	return nil
}

// partialResult carries one partition's outcome across the worker
// channel.
type partialResult struct {
	partials map[int]recipe.Partial
	err      error
}

func (f *frame) runPlan(ctx context.Context, trips []types.Trip) (map[int]recipe.Partial, error) {
	s := f.session

	buildDir := filepath.Join(s.workDir, "build")
	scanDir := filepath.Join(s.workDir, "scan")
	for _, dir := range []string{buildDir, scanDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewEngineError(errors.CodeExecutionFailed,
				fmt.Sprintf("failed to create working directory %s", dir), err)
		}
	}

	shards := s.router.Split(trips)
	builder := partition.NewBuilder(buildDir)

	// One worker per shard, throttled by the semaphore. Each worker owns
	// its shard end to end: build, upload, download, scan.
	sem := make(chan struct{}, s.concurrency)
	results := make(chan partialResult, len(shards))
	var wg sync.WaitGroup

	for shard, rows := range shards {
		if len(rows) == 0 {
			continue
		}
		wg.Add(1)
		go func(shard int, rows []types.Trip) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			partials, err := f.runShard(ctx, builder, scanDir, shard, rows)
			results <- partialResult{partials: partials, err: err}
		}(shard, rows)
	}

	wg.Wait()
	close(results)

	merged := make(map[int]recipe.Partial, 24)
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		for hour, p := range res.partials {
			m := merged[hour]
			m.Merge(p)
			merged[hour] = m
		}
	}
	return merged, nil
}

// runShard processes one shard: build the SQLite partition, stage it
// through the store, and scan the staged copy for partial aggregates.
// The staging round trip is deliberate even on local storage so the
// scan always reads what the store holds, not what the builder wrote.
func (f *frame) runShard(ctx context.Context, builder *partition.Builder, scanDir string, shard int, rows []types.Trip) (map[int]recipe.Partial, error) {
	s := f.session

	info, err := builder.Build(ctx, rows, shard)
	if err != nil {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed,
			fmt.Sprintf("failed to build partition for shard %d", shard), err)
	}

	objectPath := s.objectPrefix() + filepath.Base(info.SQLitePath)
	if err := s.store.Upload(ctx, info.SQLitePath, objectPath); err != nil {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed,
			fmt.Sprintf("failed to stage partition %s", info.PartitionID), err)
	}

	scanPath := filepath.Join(scanDir, filepath.Base(info.SQLitePath))
	if err := s.store.Download(ctx, objectPath, scanPath); err != nil {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed,
			fmt.Sprintf("failed to fetch staged partition %s", info.PartitionID), err)
	}

	return f.scanPartition(ctx, scanPath, info.PartitionID)
}

// scanPartition runs the per-partition aggregation SQL and collects the
// grouped partial sums.
func (f *frame) scanPartition(ctx context.Context, path, partitionID string) (map[int]recipe.Partial, error) {
	s := f.session

	db, err := s.pool.Get(ctx, path)
	if err != nil {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed,
			fmt.Sprintf("failed to open partition %s", partitionID), err)
	}
	defer s.pool.Release(path)

	rows, err := db.QueryContext(ctx, f.session.recipe.PartitionSQL(partition.TableName))
	if err != nil {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed,
			fmt.Sprintf("failed to scan partition %s", partitionID), err)
	}
	defer rows.Close()

	partials := make(map[int]recipe.Partial, 24)
	for rows.Next() {
		var hour int
		var p recipe.Partial
		if err := rows.Scan(&hour, &p.Sum, &p.Count); err != nil {
			return nil, errors.NewEngineError(errors.CodeExecutionFailed,
				fmt.Sprintf("failed to read partial aggregate from partition %s", partitionID), err)
		}
		partials[hour] = p
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed,
			fmt.Sprintf("partition scan interrupted on %s", partitionID), err)
	}

	return partials, nil
}
