// Package bench orchestrates the benchmark matrix: every configured
// sample fraction against every engine, timed per phase, with per-cell
// failure isolation and a cross-engine consistency check.
package bench

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tripbench/tripbench/internal/dataset"
	"github.com/tripbench/tripbench/internal/engine"
	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/pkg/types"
)

// Sink receives every successful aggregation result, typically to
// render a chart artifact. Sink failures are reported on the cell but
// never fail the run.
type Sink interface {
	WriteResult(label string, result types.AggregationResult) error
}

// Options configures a benchmark run.
type Options struct {
	// DatasetPath is the parquet or CSV file all cells read
	DatasetPath string

	// Fractions is the ordered sequence of sample fractions
	Fractions []float64

	// Seed drives the sampling RNG; 0 derives it from the clock
	Seed int64

	// Tolerance is the maximum relative divergence between engines
	Tolerance float64

	// Sink receives successful results; nil disables the handoff
	Sink Sink
}

// CellOutcome records what happened in one matrix cell.
type CellOutcome struct {
	Engine   types.EngineKind
	Fraction float64
	Result   types.AggregationResult
	Err      error

	// SinkErr is a non-fatal sink write failure for this cell
	SinkErr error
}

// Succeeded reports whether the cell produced a result.
func (c CellOutcome) Succeeded() bool {
	return c.Err == nil
}

// Runner executes the benchmark matrix over a fixed set of engines.
// Cells run strictly sequentially in declared order: fractions outer,
// engines inner.
type Runner struct {
	engines []engine.Engine
	options Options
	logger  *log.Logger
}

// NewRunner creates a runner. Engine order is cell execution order
// within each fraction.
func NewRunner(engines []engine.Engine, options Options, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{engines: engines, options: options, logger: logger}
}

// Run executes the full matrix and returns the report. It fails fast
// only on data-source problems found before the matrix starts; once
// cells are running, engine failures are contained to their cell (or,
// for a failed Open, to that engine's remaining cells).
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID := uuid.New().String()[:8]
	report := &Report{
		RunID:       runID,
		DatasetPath: r.options.DatasetPath,
		StartedAt:   time.Now(),
	}

	if err := dataset.Probe(r.options.DatasetPath); err != nil {
		return nil, err
	}
	if len(r.options.Fractions) == 0 {
		return nil, errors.NewInternalError("no sample fractions configured", nil)
	}
	for _, f := range r.options.Fractions {
		spec := types.SampleSpec{Fraction: f, Seed: r.options.Seed}
		if err := spec.Validate(); err != nil {
			return nil, errors.NewDataSourceError(errors.CodeSampleInvalid, "invalid sample fraction", err)
		}
	}

	// A zero seed resolves to one clock-derived seed for the whole run.
	// Both engines must sample with the same seed at every fraction,
	// otherwise they draw different row sets and the consistency check
	// compares incomparable results.
	seed := r.options.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		r.logger.Printf("bench: derived sampling seed %d from the clock", seed)
	}

	sessions := make(map[types.EngineKind]engine.Session)
	openErrs := make(map[types.EngineKind]error)

	// Every opened session is closed exactly once, in declared engine
	// order, even when the run aborts mid-matrix.
	defer func() {
		for _, eng := range r.engines {
			kind := eng.Kind()
			sess, ok := sessions[kind]
			if !ok {
				continue
			}
			delete(sessions, kind)
			if err := sess.Close(); err != nil {
				r.logger.Printf("bench: failed to close %s session: %v", kind, err)
			}
		}
	}()

	for _, fraction := range r.options.Fractions {
		outcomes := make(map[types.EngineKind]CellOutcome, len(r.engines))

		for _, eng := range r.engines {
			kind := eng.Kind()

			if openErr, skipped := openErrs[kind]; skipped {
				outcome := CellOutcome{Engine: kind, Fraction: fraction, Err: openErr}
				report.Cells = append(report.Cells, outcome)
				outcomes[kind] = outcome
				continue
			}

			sess, ok := sessions[kind]
			if !ok {
				var err error
				sess, err = eng.Open(ctx)
				if err != nil {
					r.logger.Printf("bench: %s engine unavailable, skipping its cells: %v", kind, err)
					openErrs[kind] = err
					outcome := CellOutcome{Engine: kind, Fraction: fraction, Err: err}
					report.Cells = append(report.Cells, outcome)
					outcomes[kind] = outcome
					continue
				}
				sessions[kind] = sess
			}

			outcome := r.runCell(ctx, sess, kind, fraction, seed, report)
			report.Cells = append(report.Cells, outcome)
			outcomes[kind] = outcome
		}

		r.checkConsistency(fraction, outcomes, report)
	}

	report.FinishedAt = time.Now()
	return report, nil
}

// runCell executes one engine at one fraction: Load, then Aggregate,
// each timed. A failure anywhere yields a failed cell and no timing
// record for the phase that broke.
func (r *Runner) runCell(ctx context.Context, sess engine.Session, kind types.EngineKind, fraction float64, seed int64, report *Report) CellOutcome {
	outcome := CellOutcome{Engine: kind, Fraction: fraction}

	var sample *types.SampleSpec
	if fraction < 1 {
		sample = &types.SampleSpec{Fraction: fraction, Seed: seed}
	}

	loadStart := time.Now()
	frame, err := sess.Load(ctx, r.options.DatasetPath, sample)
	loadElapsed := time.Since(loadStart)
	if err != nil {
		r.logger.Printf("bench: cell %s/%g load failed: %v", kind, fraction, err)
		outcome.Err = err
		return outcome
	}

	aggStart := time.Now()
	result, err := sess.Aggregate(ctx, frame)
	aggElapsed := time.Since(aggStart)
	if err != nil {
		r.logger.Printf("bench: cell %s/%g aggregate failed: %v", kind, fraction, err)
		outcome.Err = err
		return outcome
	}

	// RowCount after Aggregate is a cache read on every engine, so the
	// timings above are not distorted by it.
	rowCount, err := sess.RowCount(ctx, frame)
	if err != nil {
		r.logger.Printf("bench: cell %s/%g row count failed: %v", kind, fraction, err)
		outcome.Err = err
		return outcome
	}

	report.Timings = append(report.Timings,
		types.TimingRecord{Engine: kind, Phase: types.PhaseLoad, Fraction: fraction, Elapsed: loadElapsed, RowCount: rowCount},
		types.TimingRecord{Engine: kind, Phase: types.PhaseAggregate, Fraction: fraction, Elapsed: aggElapsed, RowCount: rowCount},
	)
	outcome.Result = result

	if r.options.Sink != nil {
		label := fmt.Sprintf("%s n=%d fraction=%g", kind, rowCount, fraction)
		if err := r.options.Sink.WriteResult(label, result); err != nil {
			r.logger.Printf("bench: sink write failed for cell %s/%g: %v", kind, fraction, err)
			outcome.SinkErr = err
		}
	}

	return outcome
}
