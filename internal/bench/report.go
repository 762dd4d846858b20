package bench

import (
	"fmt"
	"strings"
	"time"

	"github.com/tripbench/tripbench/pkg/types"
)

// Report is the complete record of one benchmark run.
type Report struct {
	RunID       string
	DatasetPath string
	StartedAt   time.Time
	FinishedAt  time.Time

	// Cells holds one outcome per matrix cell in execution order
	Cells []CellOutcome

	// Timings holds two records per successful cell, load then aggregate
	Timings []types.TimingRecord

	// ComparedFractions lists the fractions where both engines
	// succeeded and the consistency check ran
	ComparedFractions []float64

	// Violations holds every cross-engine disagreement found
	Violations []Violation
}

// Consistent reports whether the run found no cross-engine violations.
func (r *Report) Consistent() bool {
	return len(r.Violations) == 0
}

// FailedCells returns the cells that produced no result.
func (r *Report) FailedCells() []CellOutcome {
	var failed []CellOutcome
	for _, cell := range r.Cells {
		if !cell.Succeeded() {
			failed = append(failed, cell)
		}
	}
	return failed
}

// Summary renders the human-readable run report: per-cell timings,
// failures, and the consistency verdict.
func (r *Report) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "benchmark run %s on %s\n", r.RunID, r.DatasetPath)
	fmt.Fprintf(&b, "total wall clock: %.3fs\n", r.FinishedAt.Sub(r.StartedAt).Seconds())

	b.WriteString("\ntimings:\n")
	if len(r.Timings) == 0 {
		b.WriteString("  (no cell completed)\n")
	}
	for _, t := range r.Timings {
		fmt.Fprintf(&b, "  %s\n", t)
	}

	if failed := r.FailedCells(); len(failed) > 0 {
		b.WriteString("\nfailed cells:\n")
		for _, cell := range failed {
			fmt.Fprintf(&b, "  %s fraction=%g: %v\n", cell.Engine, cell.Fraction, cell.Err)
		}
	}

	b.WriteString("\nconsistency:\n")
	if len(r.ComparedFractions) == 0 {
		b.WriteString("  no fraction had results from both engines\n")
	} else if r.Consistent() {
		fmt.Fprintf(&b, "  engines agree at all %d compared fractions\n", len(r.ComparedFractions))
	} else {
		for _, v := range r.Violations {
			fmt.Fprintf(&b, "  MISMATCH %s\n", v)
		}
	}

	return b.String()
}
