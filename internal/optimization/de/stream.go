package de

import (
	"math"
	"math/rand"
)

// Stream is the single seeded random source of an Engine. Every stochastic
// decision (initial sampling, donor selection, crossover) draws from it in a
// fixed order, so a seed fully determines a run.
//
// Stream is not safe for concurrent use.
type Stream struct {
	rng *rand.Rand
}

// NewStream returns a Stream seeded with seed.
func NewStream(seed int64) *Stream {
	return &Stream{rng: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform draw in [0, 1).
func (s *Stream) Float64() float64 {
	return s.rng.Float64()
}

// Uniform returns a uniform draw in [lo, hi].
func (s *Stream) Uniform(lo, hi float64) float64 {
	return math.Min(hi, lo+s.rng.Float64()*(hi-lo))
}

// Intn returns a uniform draw in [0, n).
func (s *Stream) Intn(n int) int {
	return s.rng.Intn(n)
}

// Donors draws three mutually distinct indices in [0, n), all different from
// target. n must be at least 4.
func (s *Stream) Donors(n, target int) (int, int, int) {
	r1 := s.distinct(n, target, -1, -1)
	r2 := s.distinct(n, target, r1, -1)
	r3 := s.distinct(n, target, r1, r2)
	return r1, r2, r3
}

func (s *Stream) distinct(n, a, b, c int) int {
	for {
		r := s.rng.Intn(n)
		if r != a && r != b && r != c {
			return r
		}
	}
}
