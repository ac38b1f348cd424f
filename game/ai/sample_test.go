package ai

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fixedRand returns preset draws.
type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(n int) int    { return r.n % n }

func TestWeightedIndex(t *testing.T) {
	cases := []struct {
		name    string
		weights []float64
		r       fixedRand
		want    int
	}{
		{"empty", nil, fixedRand{}, -1},
		{"single", []float64{3}, fixedRand{f: 0.9}, 0},
		{"low draw", []float64{1, 1, 2}, fixedRand{f: 0.1}, 0},
		{"middle draw", []float64{1, 1, 2}, fixedRand{f: 0.3}, 1},
		{"high draw", []float64{1, 1, 2}, fixedRand{f: 0.99}, 2},
		{"boundary goes right", []float64{1, 1}, fixedRand{f: 0.5}, 1},
		{"zero draw skips zero weights", []float64{0, 0, 5}, fixedRand{f: 0}, 2},
		{"rounded draw lands on last positive", []float64{2, 0}, fixedRand{f: 1}, 0},
		{"all zero falls back to uniform", []float64{0, 0, 0}, fixedRand{n: 2}, 2},
		{"negative counts as zero", []float64{-1, 1}, fixedRand{f: 0}, 1},
		{"nan counts as zero", []float64{math.NaN(), 1}, fixedRand{f: 0}, 1},
		{"infinite wins", []float64{5, math.Inf(1), 5}, fixedRand{n: 0}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, WeightedIndex(tc.r, tc.weights))
		})
	}
}

func TestWeightedIndex_Distribution(t *testing.T) {
	r := NewRand(7)
	counts := make([]int, 3)
	const draws = 30000
	for i := 0; i < draws; i++ {
		counts[WeightedIndex(r, []float64{1, 0, 3})]++
	}
	assert.Zero(t, counts[1])
	assert.InDelta(t, 0.25, float64(counts[0])/draws, 0.02)
	assert.InDelta(t, 0.75, float64(counts[2])/draws, 0.02)
}

func TestNewRand_Deterministic(t *testing.T) {
	a, b := NewRand(99), NewRand(99)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}
