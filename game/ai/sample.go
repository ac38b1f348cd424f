package ai

import (
	"math"
	"sort"
)

// WeightedIndex draws one index with probability proportional to its weight.
// Negative and NaN weights count as zero.
//
// The draw is located on the cumulative weights with a binary search for the
// first boundary strictly above it, so a zero-weight entry is never chosen
// while any weight is positive. When every weight is zero the draw falls back
// to a uniform choice over all indices. Returns -1 for an empty slice.
func WeightedIndex(r Rand, weights []float64) int {
	if len(weights) == 0 {
		return -1
	}
	cumulative := make([]float64, len(weights))
	total := 0.0
	var infinite []int
	for i, w := range weights {
		switch {
		case math.IsInf(w, 1):
			infinite = append(infinite, i)
		case w > 0:
			total += w
		}
		cumulative[i] = total
	}
	if len(infinite) > 0 {
		return infinite[r.IntN(len(infinite))]
	}
	if total <= 0 || math.IsInf(total, 1) {
		return r.IntN(len(weights))
	}

	u := r.Float64() * total
	i := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > u })
	if i == len(cumulative) {
		// u rounded up to total; take the last entry that carries weight.
		i = len(cumulative) - 1
		for i > 0 && !(weights[i] > 0) {
			i--
		}
	}
	return i
}
