package dataset

import (
	"math/rand"
	"time"

	"github.com/tripbench/tripbench/pkg/types"
)

// Sample reduces trips to approximately spec.Fraction × N rows using
// uniform selection without replacement. Relative row order is preserved.
// The result size is probabilistic, not exact: both engines receive the
// same contract ("about fraction × N rows"), never a row-for-row match.
func Sample(trips []types.Trip, spec types.SampleSpec) []types.Trip {
	if spec.Fraction >= 1 {
		out := make([]types.Trip, len(trips))
		copy(out, trips)
		return out
	}

	seed := spec.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	out := make([]types.Trip, 0, int(float64(len(trips))*spec.Fraction)+1)
	for _, trip := range trips {
		if rng.Float64() < spec.Fraction {
			out = append(out, trip)
		}
	}
	return out
}
