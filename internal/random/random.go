// Package random provides the seeded pseudo-random source used for weight
// initialization and stochastic sampling.
//
// A Source is an explicit value: every consumer receives the Source it draws
// from, so two models built from sources with the same seed are identical.
package random

import "math/rand"

// Source is a deterministic pseudo-random generator.
// A Source is not safe for concurrent use.
type Source struct {
	rng *rand.Rand
}

// New creates a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{
		rng: rand.New(rand.NewSource(seed)), //nolint:gosec // Deterministic seed for reproducible training
	}
}

// Float64 returns a uniform value in [0, 1).
func (s *Source) Float64() float64 {
	return s.rng.Float64()
}

// Float returns a uniform value in [a, b).
func (s *Source) Float(a, b float64) float64 {
	return s.rng.Float64()*(b-a) + a
}
