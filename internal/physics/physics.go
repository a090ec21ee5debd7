// Package physics is the first-order response model of the engine fuel system.
package physics

import (
	"math"
	"time"

	"github.com/turbofuel/fueltwin/pkg/core"
)

// Smoothing rates applied once per tick.
const (
	N1Rate           = 0.1
	N2Rate           = 0.2
	LowPressureRate  = 0.3
	HighPressureRate = 0.2
	T45Rate          = 0.15

	// LowPressureSpinRPM is the N1 speed above which the boost pump delivers.
	LowPressureSpinRPM = 1000.0
	// NominalFlowLPH is the flow at nominal rail pressure and full throttle.
	NominalFlowLPH = 200.0
	// filterFlowScale and filterFlowRise map flow to the unclogged filter dP.
	filterFlowScale = 279.0
	filterFlowRise  = 15.0
	// hpOvershoot lets the HP rail run above nominal at full speed.
	hpOvershoot = 1.2
	// t45RiseFactor scales the temperature rise at full speed.
	t45RiseFactor = 1.1
)

// Lerp moves current a fraction rate of the way to target.
func Lerp(current, target, rate float64) float64 {
	return current + (target-current)*rate
}

// TargetN1 is the spool speed the throttle commands.
func TargetN1(throttlePercent float64) float64 {
	tf := throttlePercent / 100
	return 0.2*core.N1MaxRPM + 0.8*core.N1MaxRPM*tf
}

// ExpectedT45 is the exhaust temperature the model settles at for speed n1.
func ExpectedT45(n1 float64) float64 {
	return core.AmbientTempK + (core.T45NormalLimitK-core.AmbientTempK)*(n1/core.N1MaxRPM)*t45RiseFactor
}

// Step advances prev by one tick of length dt. The filter fault decides
// whether filter dP accumulates (Clog) or follows the current flow.
func Step(prev core.TrueState, throttlePercent float64, filterFault core.FaultConfig, dt time.Duration) core.TrueState {
	tf := throttlePercent / 100
	p := prev.Readings
	var n core.Readings

	n.N1RPM = Lerp(p.N1RPM, TargetN1(throttlePercent), N1Rate)
	n.N2RPM = Lerp(p.N2RPM, n.N1RPM*(core.N2MaxRPM/core.N1MaxRPM), N2Rate)
	n1Frac := n.N1RPM / core.N1MaxRPM

	lpTarget := 0.0
	if n.N1RPM > LowPressureSpinRPM {
		lpTarget = core.LowPressureNormalKPA
	}
	n.LowPressureKPA = Lerp(p.LowPressureKPA, lpTarget, LowPressureRate)
	n.HighPressureMPA = Lerp(p.HighPressureMPA, n1Frac*core.HighPressureNormalMPA*hpOvershoot, HighPressureRate)

	n.FuelFlowLPH = math.Max(0, n.HighPressureMPA/core.HighPressureNormalMPA*NominalFlowLPH*tf)
	n.FuelQuantityL = math.Max(0, p.FuelQuantityL-n.FuelFlowLPH*dt.Hours())

	n.T45TempK = Lerp(p.T45TempK, ExpectedT45(n.N1RPM), T45Rate)

	if filterFault.Kind == core.FaultClog {
		n.FilterDiffPressureKPA = p.FilterDiffPressureKPA + filterFault.Magnitude/1000
	} else {
		n.FilterDiffPressureKPA = core.FilterBaselineKPA + n.FuelFlowLPH/filterFlowScale*filterFlowRise
	}

	return core.TrueState{Readings: clampNonNegative(n)}
}

func clampNonNegative(r core.Readings) core.Readings {
	for _, c := range core.Channels() {
		if v := r.Get(c); v < 0 || math.IsNaN(v) {
			r = r.With(c, 0)
		}
	}
	return r
}
