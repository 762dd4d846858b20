package types

import (
	"fmt"
	"time"
)

// EngineKind identifies one of the two execution engines.
type EngineKind string

const (
	// EngineLocal is the single-process eager in-memory engine.
	EngineLocal EngineKind = "local"

	// EnginePartitioned is the partitioned engine that scatters rows
	// across SQLite micro-partitions and aggregates them in parallel.
	EnginePartitioned EngineKind = "partitioned"
)

// Phase identifies a timed pipeline phase within one benchmark cell.
type Phase string

const (
	PhaseLoad      Phase = "load"
	PhaseAggregate Phase = "aggregate"
)

// SampleSpec defines how a table is reduced before processing.
// Sampling is approximate: the contract is "about Fraction × N rows",
// selected uniformly without replacement, not a deterministic row set.
type SampleSpec struct {
	// Fraction of rows to retain, in (0, 1]
	Fraction float64

	// Seed for the sampling RNG; 0 means derive from the clock
	Seed int64
}

// Validate checks that the fraction is in (0, 1].
func (s SampleSpec) Validate() error {
	if s.Fraction <= 0 || s.Fraction > 1 {
		return fmt.Errorf("sample fraction must be in (0, 1], got %g", s.Fraction)
	}
	return nil
}

// HourlyFare is one row of an aggregation result: the mean fare for all
// trips picked up during one hour of the day.
type HourlyFare struct {
	// Hour of day, 0–23
	Hour int `json:"hour"`

	// AvgFare is the mean fare_amount over the hour's trips
	AvgFare float64 `json:"avg_fare"`

	// Count is the number of trips that contributed to the mean
	Count int64 `json:"count"`
}

// AggregationResult is the canonical comparison artifact between engines:
// one HourlyFare per hour present in the data, sorted ascending by hour.
type AggregationResult []HourlyFare

// Hours returns the ordered set of hours present in the result.
func (r AggregationResult) Hours() []int {
	hours := make([]int, len(r))
	for i, hf := range r {
		hours[i] = hf.Hour
	}
	return hours
}

// TotalCount returns the number of rows that contributed to the result.
func (r AggregationResult) TotalCount() int64 {
	var n int64
	for _, hf := range r {
		n += hf.Count
	}
	return n
}

// TimingRecord captures the wall-clock cost of one phase of one benchmark
// cell. Records are immutable after creation and collected only by the
// orchestrator.
type TimingRecord struct {
	Engine   EngineKind    `json:"engine"`
	Phase    Phase         `json:"phase"`
	Fraction float64       `json:"sample_fraction"`
	Elapsed  time.Duration `json:"elapsed"`
	RowCount int64         `json:"row_count"`
}

// String renders the record the way the final report prints it.
func (t TimingRecord) String() string {
	return fmt.Sprintf("%s %s fraction=%g rows=%d elapsed=%.3fs",
		t.Engine, t.Phase, t.Fraction, t.RowCount, t.Elapsed.Seconds())
}
