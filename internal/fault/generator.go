package fault

import "ftmgedf/internal/core"

// regime tracks one faulty core's Gilbert-Elliott Burst/Gap state machine.
type regime struct {
	lastStart int64
	lB, lG    int64
	permFail  bool
}

// Params are the Gilbert-Elliott knobs shared by every faulty core in a
// CoreSet: burstyChance and faultPeriodScaler shape the Burst/Gap sojourn
// lengths, lambdaC/lambdaB/lambdaR are the per-tick failure thresholds.
type Params struct {
	BurstyChance      float64
	FaultPeriodScaler int64
	LambdaC           float64
	LambdaB           float64
	LambdaR           float64
}

// Generator is the sole mutator of core activity during a tick. It owns one
// regime per faulty core and the RNG seam all fault decisions are drawn
// through.
type Generator struct {
	params  Params
	rng     Source
	regimes map[int]*regime
}

// NewGenerator constructs a fault generator for the given cores, seeding a
// fresh regime for each faulty one.
func NewGenerator(params Params, rng Source, cores *core.Set) *Generator {
	g := &Generator{params: params, rng: rng, regimes: make(map[int]*regime)}
	for _, c := range cores.All() {
		if c.IsFaulty {
			g.regimes[c.ID] = g.newRegimeAt(0)
		}
	}
	return g
}

func (g *Generator) newRegimeAt(t int64) *regime {
	pB := 1 - g.params.BurstyChance
	pG := g.params.BurstyChance
	return &regime{
		lastStart: t,
		lB:        g.rng.Geometric(pB) * g.params.FaultPeriodScaler,
		lG:        g.rng.Geometric(pG) * g.params.FaultPeriodScaler,
	}
}

// Step advances the fault model by one tick for every faulty, not yet
// permanently failed core, deactivating or reactivating cores as dictated
// by the Gilbert-Elliott draw. Stable cores are left untouched.
func (g *Generator) Step(t int64, cores *core.Set) {
	for _, c := range cores.All() {
		if !c.IsFaulty || c.PermanentlyFailed() {
			continue
		}
		r := g.regimes[c.ID]
		if t >= r.lastStart+r.lB+r.lG {
			r = g.newRegimeAt(t)
			g.regimes[c.ID] = r
		}
		bursty := t < r.lastStart+r.lB

		u := g.rng.Uniform()
		switch {
		case u < g.params.LambdaC:
			c.FailPermanently()
		case bursty && u < g.params.LambdaB:
			c.Deactivate()
		case !bursty && u < g.params.LambdaR:
			c.Deactivate()
		default:
			c.Activate()
		}
	}
}
