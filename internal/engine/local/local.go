// Package local implements the single-process eager engine: the dataset
// is materialized in memory at load time and the aggregation is a
// synchronous in-process group-by.
package local

import (
	"context"
	"fmt"

	"github.com/tripbench/tripbench/internal/dataset"
	"github.com/tripbench/tripbench/internal/engine"
	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/internal/recipe"
	"github.com/tripbench/tripbench/pkg/types"
)

// Engine is the local execution engine. It is stateless; sessions carry
// no resources and Close is a no-op.
type Engine struct {
	recipe recipe.Recipe
}

// New creates a local engine running the hourly mean-fare recipe.
func New() *Engine {
	return &Engine{recipe: recipe.HourlyMeanFare}
}

// Kind implements engine.Engine.
func (e *Engine) Kind() types.EngineKind {
	return types.EngineLocal
}

// Open implements engine.Engine. Local sessions are free to create.
func (e *Engine) Open(ctx context.Context) (engine.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewEngineError(errors.CodeEngineUnavailable, "local engine open", err)
	}
	return &session{recipe: e.recipe}, nil
}

type session struct {
	recipe recipe.Recipe
	closed bool
}

type frame struct {
	table *types.Table
}

func (f *frame) Source() string {
	return f.table.Source
}

// Load reads the dataset eagerly into memory.
func (s *session) Load(ctx context.Context, path string, sample *types.SampleSpec) (engine.Frame, error) {
	if s.closed {
		return nil, errors.NewEngineError(errors.CodeSessionClosed, "local session is closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed, "local load", err)
	}

	table, err := dataset.Load(path, sample)
	if err != nil {
		return nil, err
	}
	return &frame{table: table}, nil
}

// Aggregate runs the recipe over the in-memory rows. Accumulation order
// is the table's row order, so repeated calls over the same frame are
// bit-identical.
func (s *session) Aggregate(ctx context.Context, f engine.Frame) (types.AggregationResult, error) {
	if s.closed {
		return nil, errors.NewEngineError(errors.CodeSessionClosed, "local session is closed", nil)
	}
	lf, ok := f.(*frame)
	if !ok {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed,
			fmt.Sprintf("frame type %T does not belong to the local engine", f), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed, "local aggregate", err)
	}

	partials := make(map[int]recipe.Partial, 24)
	for _, trip := range lf.table.Trips {
		p := partials[s.recipe.Hour(trip)]
		p.Accumulate(s.recipe.Value(trip))
		partials[s.recipe.Hour(trip)] = p
	}

	return recipe.Finalize(partials), nil
}

// RowCount is free for the eager engine.
func (s *session) RowCount(ctx context.Context, f engine.Frame) (int64, error) {
	if s.closed {
		return 0, errors.NewEngineError(errors.CodeSessionClosed, "local session is closed", nil)
	}
	lf, ok := f.(*frame)
	if !ok {
		return 0, errors.NewEngineError(errors.CodeExecutionFailed,
			fmt.Sprintf("frame type %T does not belong to the local engine", f), nil)
	}
	return int64(lf.table.Len()), nil
}

// Close implements engine.Session. No resources to release.
func (s *session) Close() error {
	s.closed = true
	return nil
}
