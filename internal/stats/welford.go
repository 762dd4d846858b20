// Package stats computes descriptive statistics over trip tables for
// the exploratory analysis tooling: per-column summaries, histograms
// and a correlation matrix.
package stats

import "math"

// Welford accumulates mean and variance in one pass without storing
// observations.
type Welford struct {
	count uint64
	mean  float64
	m2    float64
	min   float64
	max   float64
}

// NewWelford creates an empty accumulator.
func NewWelford() *Welford {
	return &Welford{min: math.Inf(1), max: math.Inf(-1)}
}

// Update folds one observation into the accumulator.
func (w *Welford) Update(value float64) {
	w.count++
	delta := value - w.mean
	w.mean += delta / float64(w.count)
	delta2 := value - w.mean
	w.m2 += delta * delta2

	if value < w.min {
		w.min = value
	}
	if value > w.max {
		w.max = value
	}
}

// Count returns the number of observations seen.
func (w *Welford) Count() uint64 {
	return w.count
}

// Mean returns the running mean, zero before any observation.
func (w *Welford) Mean() float64 {
	return w.mean
}

// Min returns the smallest observation, +Inf before any observation.
func (w *Welford) Min() float64 {
	return w.min
}

// Max returns the largest observation, -Inf before any observation.
func (w *Welford) Max() float64 {
	return w.max
}

// Variance returns the population variance.
func (w *Welford) Variance() float64 {
	if w.count < 2 {
		return 0
	}
	return w.m2 / float64(w.count)
}

// SampleVariance returns the Bessel-corrected variance.
func (w *Welford) SampleVariance() float64 {
	if w.count < 2 {
		return 0
	}
	return w.m2 / float64(w.count-1)
}

// StdDev returns the sample standard deviation.
func (w *Welford) StdDev() float64 {
	return math.Sqrt(w.SampleVariance())
}
