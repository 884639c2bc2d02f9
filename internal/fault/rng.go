// Package fault implements the Gilbert-Elliott bursty fault model: a
// two-state (burst/gap) Markov process per faulty core, driven entirely
// through a seedable RNG seam so a run is fully reproducible from its seed.
package fault

import (
	"math"
	"math/rand/v2"
)

// Source is the RNG seam: the only place randomness enters the scheduler.
// Everything else in the simulator is a deterministic function of the
// sequence of draws made through this interface.
type Source interface {
	// Uniform returns a draw in [0, 1).
	Uniform() float64
	// Geometric returns a draw from a geometric distribution on {1, 2, ...}
	// with success probability p, i.e. the number of trials up to and
	// including the first success.
	Geometric(p float64) int64
}

// RNG is the default Source, backed by math/rand/v2's PCG generator seeded
// deterministically from a single uint64 so runs are reproducible.
type RNG struct {
	r *rand.Rand
}

// NewRNG constructs a seeded RNG.
func NewRNG(seed uint64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

func (g *RNG) Uniform() float64 { return g.r.Float64() }

func (g *RNG) Geometric(p float64) int64 {
	switch {
	case p >= 1:
		return 1
	case p <= 0:
		return math.MaxInt64
	}
	u := g.r.Float64()
	return int64(math.Ceil(math.Log(1-u) / math.Log(1-p)))
}
