// Package engine defines the uniform contract both execution engines
// expose to the benchmark orchestrator: open a session, load a dataset,
// run the hourly-fare aggregation, count rows, release resources.
package engine

import (
	"context"

	"github.com/tripbench/tripbench/pkg/types"
)

// Engine is an execution strategy for the aggregation recipe.
type Engine interface {
	// Kind identifies the engine in timing records and reports.
	Kind() types.EngineKind

	// Open establishes an engine session. For the local engine this is
	// free; for the partitioned engine it acquires the staging
	// workspace, connection pool, and object storage handle, and may
	// fail when those resources are unavailable. The session must be
	// closed by the caller.
	Open(ctx context.Context) (Session, error)
}

// Session is an open engine handle. Sessions are owned by a single
// caller for their lifetime and are not safe for concurrent use; the
// orchestrator runs cells strictly sequentially against one session.
type Session interface {
	// Load prepares the dataset at path for aggregation, optionally
	// sampled. The local engine loads eagerly; the partitioned engine
	// returns an un-materialized frame and defers all work to the
	// first forcing call.
	Load(ctx context.Context, path string, sample *types.SampleSpec) (Frame, error)

	// Aggregate computes the mean fare grouped by pickup hour, ordered
	// ascending by hour. For the partitioned engine this forces
	// materialization; the materialized state is cached on the frame.
	Aggregate(ctx context.Context, frame Frame) (types.AggregationResult, error)

	// RowCount returns the number of rows in the frame. After
	// Aggregate it is served from the cached materialization; called
	// first, it forces the plan itself.
	RowCount(ctx context.Context, frame Frame) (int64, error)

	// Close releases engine resources. Idempotent; a no-op for the
	// local engine.
	Close() error
}

// Frame is an engine-native handle to a loaded (or lazily planned)
// dataset. Frames are only meaningful to the session that produced them.
type Frame interface {
	// Source returns the dataset path the frame was loaded from.
	Source() string
}
