// Package rnd holds the seeded random sources shared by all simulation
// entities.
package rnd

import (
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// New returns a generator seeded with seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Child derives an independent generator from parent. A nil parent yields
// a time-seeded generator, i.e. a non-reproducible run.
func Child(parent *rand.Rand) *rand.Rand {
	if parent == nil {
		return New(uint64(time.Now().UnixNano()))
	}
	return New(parent.Uint64())
}

// Source adapts r for the gonum distributions. A nil r selects the
// global generator.
func Source(r *rand.Rand) rand.Source {
	if r == nil {
		return nil
	}
	return r
}

// Uniform draws from U(min, max).
func Uniform(r *rand.Rand, min, max float64) float64 {
	return distuv.Uniform{Min: min, Max: max, Src: Source(r)}.Rand()
}

// Jitter draws the per-step demand multiplier U(0.8, 1.2).
func Jitter(r *rand.Rand) float64 {
	return Uniform(r, 0.8, 1.2)
}
