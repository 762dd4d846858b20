// Package recipe defines the single logical aggregation query both
// engines realize: group trips by pickup hour, compute the mean fare,
// order ascending by hour. The recipe is the invariant; the engines are
// the degrees of freedom.
package recipe

import (
	"fmt"
	"math"
	"sort"

	"github.com/tripbench/tripbench/pkg/types"
)

// Recipe is the declarative specification of the aggregation.
type Recipe struct {
	// TimeColumn is the timestamp column whose hour component groups rows
	TimeColumn string

	// ValueColumn is the numeric column averaged per group
	ValueColumn string
}

// HourlyMeanFare is the one aggregation tripbench runs.
var HourlyMeanFare = Recipe{
	TimeColumn:  types.ColumnPickupDatetime,
	ValueColumn: types.ColumnFareAmount,
}

// Hour extracts the grouping key from a trip.
func (r Recipe) Hour(t types.Trip) int {
	return t.PickupHour()
}

// Value extracts the aggregated measure from a trip.
func (r Recipe) Value(t types.Trip) float64 {
	return t.FareAmount
}

// PartitionSQL returns the per-partition realization of the recipe: each
// SQLite micro-partition computes grouped partial sums which the engine
// merges across partitions.
func (r Recipe) PartitionSQL(table string) string {
	return fmt.Sprintf(
		"SELECT hour, SUM(%s) AS fare_sum, COUNT(*) AS trip_count FROM %s GROUP BY hour",
		types.ColumnFareAmount, table)
}

// Partial holds a mergeable partial aggregate for one group: the running
// sum and count from which the mean is finalized. Partials from separate
// partitions merge by addition.
type Partial struct {
	Sum   float64
	Count int64
}

// Merge combines another partial into this one.
func (p *Partial) Merge(other Partial) {
	p.Sum += other.Sum
	p.Count += other.Count
}

// Accumulate adds one observation.
func (p *Partial) Accumulate(value float64) {
	p.Sum += value
	p.Count++
}

// Mean finalizes the partial. NaN for empty groups.
func (p Partial) Mean() float64 {
	if p.Count == 0 {
		return math.NaN()
	}
	return p.Sum / float64(p.Count)
}

// Finalize converts per-hour partials into the canonical result shape:
// one row per hour present, sorted ascending by hour.
func Finalize(partials map[int]Partial) types.AggregationResult {
	result := make(types.AggregationResult, 0, len(partials))
	for hour, p := range partials {
		if p.Count == 0 {
			continue
		}
		result = append(result, types.HourlyFare{
			Hour:    hour,
			AvgFare: p.Mean(),
			Count:   p.Count,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Hour < result[j].Hour })
	return result
}
