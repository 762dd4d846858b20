// Package partitioned implements the distributed-style engine: rows are
// hash-routed into SQLite micro-partitions, staged through object
// storage, and aggregated in parallel with per-partition partial
// results merged into the final answer. Frames are lazy; nothing runs
// until a result is demanded.
package partitioned

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/tripbench/tripbench/internal/engine"
	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/internal/partition"
	"github.com/tripbench/tripbench/internal/pool"
	"github.com/tripbench/tripbench/internal/recipe"
	"github.com/tripbench/tripbench/internal/storage"
	"github.com/tripbench/tripbench/pkg/types"
)

// Config holds the resources the partitioned engine needs. Unlike the
// local engine, opening a session here is fallible: without a store or
// a scratch directory there is nothing to run on.
type Config struct {
	// Partitions is the number of micro-partitions per loaded frame
	Partitions int

	// Concurrency caps how many partitions build or scan at once.
	// Zero means one worker per partition.
	Concurrency int

	// WorkDir is the scratch directory for partition files
	WorkDir string

	// Store stages partition objects between build and scan
	Store storage.ObjectStorage

	// Pool configures the read-only SQLite connection pool
	Pool pool.Config
}

// Engine is the partitioned execution engine.
type Engine struct {
	config Config
	recipe recipe.Recipe
}

// New creates a partitioned engine with the given configuration.
func New(config Config) *Engine {
	if config.Partitions <= 0 {
		config.Partitions = 8
	}
	return &Engine{config: config, recipe: recipe.HourlyMeanFare}
}

// Kind implements engine.Engine.
func (e *Engine) Kind() types.EngineKind {
	return types.EnginePartitioned
}

// Open provisions a session: a scratch directory, a connection pool and
// a hash router. Failures here mean the engine is unavailable and the
// caller should skip it rather than abort the whole run.
func (e *Engine) Open(ctx context.Context) (engine.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewEngineError(errors.CodeEngineUnavailable, "partitioned engine open", err)
	}
	if e.config.Store == nil {
		return nil, errors.NewEngineError(errors.CodeEngineUnavailable,
			"partitioned engine requires an object store", nil)
	}
	if e.config.WorkDir == "" {
		return nil, errors.NewEngineError(errors.CodeEngineUnavailable,
			"partitioned engine requires a scratch directory", nil)
	}

	router, err := partition.NewHashRouter(e.config.Partitions)
	if err != nil {
		return nil, errors.NewEngineError(errors.CodeEngineUnavailable, "partition router", err)
	}

	sessionID := uuid.New().String()[:8]
	workDir := filepath.Join(e.config.WorkDir, fmt.Sprintf("session-%s", sessionID))
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, errors.NewEngineError(errors.CodeEngineUnavailable,
			fmt.Sprintf("failed to create session directory %s", workDir), err)
	}

	concurrency := e.config.Concurrency
	if concurrency <= 0 {
		concurrency = e.config.Partitions
	}

	return &session{
		id:          sessionID,
		recipe:      e.recipe,
		router:      router,
		store:       e.config.Store,
		pool:        pool.New(e.config.Pool),
		workDir:     workDir,
		concurrency: concurrency,
	}, nil
}

type session struct {
	id          string
	recipe      recipe.Recipe
	router      *partition.HashRouter
	store       storage.ObjectStorage
	pool        *pool.ConnectionPool
	workDir     string
	concurrency int

	mu     sync.Mutex
	closed bool
}

// objectPrefix is the store prefix holding everything this session
// staged. Close deletes the whole prefix.
func (s *session) objectPrefix() string {
	return fmt.Sprintf("runs/%s/", s.id)
}

// Load registers the dataset with the session but reads nothing. The
// returned frame materializes on first Aggregate or RowCount.
func (s *session) Load(ctx context.Context, path string, sample *types.SampleSpec) (engine.Frame, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errors.NewEngineError(errors.CodeSessionClosed, "partitioned session is closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed, "partitioned load", err)
	}
	if sample != nil {
		if err := sample.Validate(); err != nil {
			return nil, errors.NewDataSourceError(errors.CodeSampleInvalid, "invalid sample spec", err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewDataSourceError(errors.CodeFileMissing,
				fmt.Sprintf("dataset file %s does not exist", path), err)
		}
		return nil, errors.NewDataSourceError(errors.CodeFileMissing,
			fmt.Sprintf("dataset file %s is not accessible", path), err)
	}

	return &frame{session: s, path: path, sample: sample}, nil
}

// Aggregate forces the frame's plan and returns the merged result.
func (s *session) Aggregate(ctx context.Context, f engine.Frame) (types.AggregationResult, error) {
	pf, err := s.ownFrame(f)
	if err != nil {
		return nil, err
	}
	if err := pf.materialize(ctx); err != nil {
		return nil, err
	}
	return pf.result, nil
}

// RowCount returns the frame's row count. The count is captured during
// materialization, so calling this after Aggregate never re-runs the
// plan.
func (s *session) RowCount(ctx context.Context, f engine.Frame) (int64, error) {
	pf, err := s.ownFrame(f)
	if err != nil {
		return 0, err
	}
	if err := pf.materialize(ctx); err != nil {
		return 0, err
	}
	return pf.rowCount, nil
}

func (s *session) ownFrame(f engine.Frame) (*frame, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errors.NewEngineError(errors.CodeSessionClosed, "partitioned session is closed", nil)
	}
	pf, ok := f.(*frame)
	if !ok || pf.session != s {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed,
			fmt.Sprintf("frame type %T does not belong to this session", f), nil)
	}
	return pf, nil
}

// Close releases everything the session holds: the connection pool, the
// scratch directory and every object staged in the store. Idempotent;
// store cleanup is best effort and never masks local errors.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var firstErr error
	if err := s.pool.Close(); err != nil {
		firstErr = err
	}
	if err := os.RemoveAll(s.workDir); err != nil && firstErr == nil {
		firstErr = err
	}

	ctx := context.Background()
	objects, err := s.store.ListObjects(ctx, s.objectPrefix())
	if err == nil {
		for _, object := range objects {
			if err := s.store.Delete(ctx, object); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	} else if firstErr == nil {
		firstErr = err
	}

	return firstErr
}
