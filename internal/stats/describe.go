package stats

import (
	"fmt"
	"math"
	"strings"

	"github.com/tripbench/tripbench/pkg/types"
)

// ColumnSummary holds descriptive statistics for one numeric column.
type ColumnSummary struct {
	Column string
	Count  uint64
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

func (s ColumnSummary) String() string {
	return fmt.Sprintf("%-16s count=%d mean=%.4f std=%.4f min=%.4f max=%.4f",
		s.Column, s.Count, s.Mean, s.StdDev, s.Min, s.Max)
}

// numericColumns is the order summaries and the correlation matrix use.
var numericColumns = []string{
	types.ColumnPassengerCount,
	types.ColumnTripDistance,
	types.ColumnFareAmount,
	types.ColumnTipAmount,
	types.ColumnTotalAmount,
}

// columnValue extracts one numeric column from a trip.
func columnValue(t types.Trip, column string) float64 {
	switch column {
	case types.ColumnPassengerCount:
		return t.PassengerCount
	case types.ColumnTripDistance:
		return t.TripDistance
	case types.ColumnTipAmount:
		return t.TipAmount
	case types.ColumnTotalAmount:
		return t.TotalAmount
	default:
		return t.FareAmount
	}
}

// Describe computes one-pass summaries for every numeric column.
func Describe(table *types.Table) []ColumnSummary {
	accs := make([]*Welford, len(numericColumns))
	for i := range accs {
		accs[i] = NewWelford()
	}

	for _, trip := range table.Trips {
		for i, column := range numericColumns {
			accs[i].Update(columnValue(trip, column))
		}
	}

	summaries := make([]ColumnSummary, len(numericColumns))
	for i, column := range numericColumns {
		w := accs[i]
		summaries[i] = ColumnSummary{
			Column: column,
			Count:  w.Count(),
			Mean:   w.Mean(),
			StdDev: w.StdDev(),
			Min:    w.Min(),
			Max:    w.Max(),
		}
	}
	return summaries
}

// FormatSummaries renders summaries as an aligned text block.
func FormatSummaries(summaries []ColumnSummary) string {
	var b strings.Builder
	for _, s := range summaries {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Bin is one histogram bucket over a half-open interval [Low, High),
// with the last bucket closed on both ends.
type Bin struct {
	Low   float64
	High  float64
	Count int64
}

// Label renders a bin boundary pair for chart axes.
func (b Bin) Label() string {
	return fmt.Sprintf("%.1f-%.1f", b.Low, b.High)
}

// Histogram buckets one column into equal-width bins between the
// observed min and max. Returns nil for empty tables or fewer than one
// bin.
func Histogram(table *types.Table, column string, binCount int) []Bin {
	if table.Len() == 0 || binCount < 1 {
		return nil
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, trip := range table.Trips {
		v := columnValue(trip, column)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return []Bin{{Low: lo, High: hi, Count: int64(table.Len())}}
	}

	width := (hi - lo) / float64(binCount)
	bins := make([]Bin, binCount)
	for i := range bins {
		bins[i].Low = lo + float64(i)*width
		bins[i].High = lo + float64(i+1)*width
	}

	for _, trip := range table.Trips {
		v := columnValue(trip, column)
		idx := int((v - lo) / width)
		if idx >= binCount {
			idx = binCount - 1
		}
		bins[idx].Count++
	}
	return bins
}

// CorrelationMatrix computes Pearson correlations between every pair of
// numeric columns. The result is square in numericColumns order with a
// unit diagonal; columns with zero variance correlate as NaN.
func CorrelationMatrix(table *types.Table) ([]string, [][]float64) {
	n := len(numericColumns)
	means := make([]float64, n)
	accs := make([]*Welford, n)
	for i := range accs {
		accs[i] = NewWelford()
	}
	for _, trip := range table.Trips {
		for i, column := range numericColumns {
			accs[i].Update(columnValue(trip, column))
		}
	}
	for i := range accs {
		means[i] = accs[i].Mean()
	}

	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	for _, trip := range table.Trips {
		for i := range numericColumns {
			di := columnValue(trip, numericColumns[i]) - means[i]
			for j := i; j < n; j++ {
				dj := columnValue(trip, numericColumns[j]) - means[j]
				cov[i][j] += di * dj
			}
		}
	}

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			denom := math.Sqrt(cov[i][i] * cov[j][j])
			var r float64
			if denom == 0 {
				r = math.NaN()
			} else {
				r = cov[i][j] / denom
			}
			matrix[i][j] = r
			matrix[j][i] = r
		}
	}
	return append([]string(nil), numericColumns...), matrix
}
