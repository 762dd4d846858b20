package bench

import (
	"fmt"
	"math"

	"github.com/tripbench/tripbench/pkg/types"
)

// Violation kinds distinguish structural mismatches from numeric drift.
const (
	ViolationMissingHour = "missing_hour"
	ViolationValueDrift  = "value_drift"
	ViolationCountDrift  = "count_drift"
)

// Violation is one cross-engine disagreement at one fraction.
type Violation struct {
	Fraction float64
	Hour     int
	Kind     string

	// LocalValue and PartitionedValue hold the disagreeing numbers for
	// value and count drift; zero for missing hours.
	LocalValue       float64
	PartitionedValue float64
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationMissingHour:
		return fmt.Sprintf("fraction=%g hour=%d present in only one engine", v.Fraction, v.Hour)
	case ViolationCountDrift:
		return fmt.Sprintf("fraction=%g hour=%d counts differ: local=%d partitioned=%d",
			v.Fraction, v.Hour, int64(v.LocalValue), int64(v.PartitionedValue))
	default:
		return fmt.Sprintf("fraction=%g hour=%d means diverge: local=%.9f partitioned=%.9f",
			v.Fraction, v.Hour, v.LocalValue, v.PartitionedValue)
	}
}

// checkConsistency compares the two engines' results for one fraction.
// It only runs when both engines produced a result; a fraction where
// either cell failed has nothing to compare.
func (r *Runner) checkConsistency(fraction float64, outcomes map[types.EngineKind]CellOutcome, report *Report) {
	localCell, okLocal := outcomes[types.EngineLocal]
	partCell, okPart := outcomes[types.EnginePartitioned]
	if !okLocal || !okPart || !localCell.Succeeded() || !partCell.Succeeded() {
		return
	}

	report.ComparedFractions = append(report.ComparedFractions, fraction)
	violations := compareResults(fraction, localCell.Result, partCell.Result, r.options.Tolerance)
	if len(violations) > 0 {
		r.logger.Printf("bench: fraction %g: %d consistency violations", fraction, len(violations))
		report.Violations = append(report.Violations, violations...)
	}
}

// compareResults checks hour-set equality, per-hour relative divergence
// of the mean, and exact count agreement when both engines saw the full
// dataset. Sampled fractions draw independent row sets, so counts are
// only compared at fraction 1.
func compareResults(fraction float64, local, partitioned types.AggregationResult, tolerance float64) []Violation {
	var violations []Violation

	localByHour := make(map[int]types.HourlyFare, len(local))
	for _, hf := range local {
		localByHour[hf.Hour] = hf
	}
	partByHour := make(map[int]types.HourlyFare, len(partitioned))
	for _, hf := range partitioned {
		partByHour[hf.Hour] = hf
	}

	for hour := range localByHour {
		if _, ok := partByHour[hour]; !ok {
			violations = append(violations, Violation{Fraction: fraction, Hour: hour, Kind: ViolationMissingHour})
		}
	}
	for hour := range partByHour {
		if _, ok := localByHour[hour]; !ok {
			violations = append(violations, Violation{Fraction: fraction, Hour: hour, Kind: ViolationMissingHour})
		}
	}

	if fraction >= 1 {
		for hour, l := range localByHour {
			p, ok := partByHour[hour]
			if !ok {
				continue
			}
			if l.Count != p.Count {
				violations = append(violations, Violation{
					Fraction: fraction, Hour: hour, Kind: ViolationCountDrift,
					LocalValue: float64(l.Count), PartitionedValue: float64(p.Count),
				})
			}
		}
	}

	for hour, l := range localByHour {
		p, ok := partByHour[hour]
		if !ok {
			continue
		}
		if relativeDivergence(l.AvgFare, p.AvgFare) > tolerance {
			violations = append(violations, Violation{
				Fraction: fraction, Hour: hour, Kind: ViolationValueDrift,
				LocalValue: l.AvgFare, PartitionedValue: p.AvgFare,
			})
		}
	}

	return violations
}

// relativeDivergence is |a-b| / max(|a|, |b|), zero when both are zero.
func relativeDivergence(a, b float64) float64 {
	if a == b {
		return 0
	}
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom == 0 {
		return 0
	}
	return math.Abs(a-b) / denom
}
