package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tripbench/tripbench/pkg/types"
)

func makeTrips(n int) []types.Trip {
	trips := make([]types.Trip, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range trips {
		trips[i] = types.Trip{
			PickupTime: base.Add(time.Duration(i) * time.Minute),
			FareAmount: float64(i%50) + 5,
		}
	}
	return trips
}

func TestSample_FullFractionCopiesAllRows(t *testing.T) {
	trips := makeTrips(100)
	out := Sample(trips, types.SampleSpec{Fraction: 1.0})
	if len(out) != 100 {
		t.Fatalf("fraction 1.0 should keep all rows, got %d", len(out))
	}
	// Must be a copy, not an alias.
	out[0].FareAmount = -1
	if trips[0].FareAmount == -1 {
		t.Error("Sample must not alias the input slice")
	}
}

func TestSample_Deterministic(t *testing.T) {
	trips := makeTrips(5000)
	spec := types.SampleSpec{Fraction: 0.3, Seed: 99}

	a := Sample(trips, spec)
	b := Sample(trips, spec)
	if len(a) != len(b) {
		t.Fatalf("same seed produced different sizes: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].PickupTime != b[i].PickupTime {
			t.Fatalf("same seed produced different rows at %d", i)
		}
	}
}

func TestSample_PreservesOrder(t *testing.T) {
	trips := makeTrips(2000)
	out := Sample(trips, types.SampleSpec{Fraction: 0.5, Seed: 3})
	for i := 1; i < len(out); i++ {
		if out[i].PickupTime.Before(out[i-1].PickupTime) {
			t.Fatal("sampled rows out of source order")
		}
	}
}

// For any valid fraction, the sampled row count lands within a few
// standard deviations of fraction × N for large N.
func TestProperty_SampleSizeNearFraction(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	const n = 20000
	trips := makeTrips(n)

	properties.Property("sampled size is within statistical tolerance of fraction*N", prop.ForAll(
		func(fraction float64, seed int64) bool {
			if seed == 0 {
				seed = 1
			}
			out := Sample(trips, types.SampleSpec{Fraction: fraction, Seed: seed})

			expected := fraction * float64(n)
			// Binomial standard deviation, with a 5-sigma bound so the
			// property is effectively never flaky.
			sigma := math.Sqrt(float64(n) * fraction * (1 - fraction))
			return math.Abs(float64(len(out))-expected) <= 5*sigma+1
		},
		gen.Float64Range(0.01, 0.99),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
