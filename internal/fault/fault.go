// Package fault corrupts true readings into what a faulty instrument reports.
package fault

import (
	"math/rand/v2"

	"github.com/turbofuel/fueltwin/pkg/core"
)

// Source is the uniform random draw used by the noise fault. *rand.Rand
// satisfies it.
type Source interface {
	Float64() float64
}

// NewSource returns a seeded source; seed 0 draws from the runtime's
// random state instead.
func NewSource(seed uint64) Source {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Apply returns the value a sensor with fault fc reports for trueValue after
// elapsedSeconds of simulation. Clog, None and unknown kinds pass through.
func Apply(trueValue float64, fc core.FaultConfig, elapsedSeconds float64, src Source) float64 {
	switch fc.Kind {
	case core.FaultBias:
		return trueValue + fc.Magnitude
	case core.FaultDrift:
		return trueValue + fc.Magnitude*(elapsedSeconds/60)
	case core.FaultStuck:
		return fc.Magnitude
	case core.FaultNoise:
		return trueValue + (src.Float64()-0.5)*fc.Magnitude
	default:
		return trueValue
	}
}

// Sense derives every sensed channel from t. Channels are visited in order so
// a seeded source yields reproducible noise.
func Sense(t core.TrueState, faults core.Faults, elapsedSeconds float64, src Source) core.SensedState {
	var r core.Readings
	for _, c := range core.Channels() {
		r = r.With(c, Apply(t.Get(c), faults.Get(c), elapsedSeconds, src))
	}
	return core.SensedState{Readings: r}
}
