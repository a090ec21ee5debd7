// Package health infers component degradation from the physical state.
//
// Pump and injector scores are leaky integrators: each tick they fall by a
// fixed step while the symptom is present and recover by a smaller step
// otherwise. The filter score is proportional to the current pressure drop.
package health

import (
	"fmt"
	"math"

	"github.com/turbofuel/fueltwin/internal/physics"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// Decay and recovery steps per tick.
const (
	PumpDecay       = 1.0
	PumpRecovery    = 0.5
	InjectorDecay   = 0.5
	InjectorRecover = 0.2

	// BoostPumpMinRPM is the N1 above which the boost pump must hold pressure.
	BoostPumpMinRPM = 5000.0
	// HPPumpMinRPM is the N1 above which the HP pump must hold pressure.
	HPPumpMinRPM = 20000.0
	// InjectorToleranceK is the allowed T45 deviation from the expected value.
	InjectorToleranceK = 50.0

	// CriticalLevel and RecoveredLevel bound the alert hysteresis band.
	CriticalLevel  = 50.0
	RecoveredLevel = 80.0
)

// Critical latch bits.
const (
	latchBoostPump uint8 = 1 << iota
	latchHPPump
	latchFuelFilter
	latchInjectors
)

// Log messages.
const (
	MsgInjectorDeviation = "Potential injector issue detected (T45 deviation)."
	msgFilterWarning     = "High filter pressure drop: %.1f kPa"
	msgFilterBypass      = "Filter bypass pressure exceeded: %.1f kPa"
	msgCritical          = "%s health critical: %.0f%%"
	msgRecovered         = "%s health recovered: %.0f%%"
)

// Result is the outcome of one estimation. Entries carry only message and
// severity; the caller stamps time and step.
type Result struct {
	Health  core.ComponentHealth
	Entries []core.LogEntry
}

// Estimate derives the next health from prev and the current true state.
func Estimate(prev core.ComponentHealth, s core.TrueState) Result {
	var entries []core.LogEntry
	add := func(sev core.Severity, format string, args ...any) {
		entries = append(entries, core.LogEntry{Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	next := prev

	dp := s.FilterDiffPressureKPA
	next.FuelFilter = 100 - dp/core.FilterClogWarningKPA*50
	if dp > core.FilterClogWarningKPA {
		add(core.SeverityWarning, msgFilterWarning, dp)
	}
	if dp > core.FilterClogMaxKPA {
		add(core.SeverityAlert, msgFilterBypass, dp)
	}

	if s.LowPressureKPA < core.LowPressureMinKPA && s.N1RPM > BoostPumpMinRPM {
		next.BoostPump -= PumpDecay
	} else {
		next.BoostPump += PumpRecovery
	}

	if s.HighPressureMPA < core.HighPressureMinMPA && s.N1RPM > HPPumpMinRPM {
		next.HPPump -= PumpDecay
	} else {
		next.HPPump += PumpRecovery
	}

	if math.Abs(s.T45TempK-physics.ExpectedT45(s.N1RPM)) > InjectorToleranceK {
		next.Injectors -= InjectorDecay
		add(core.SeverityWarning, MsgInjectorDeviation)
	} else {
		next.Injectors += InjectorRecover
	}

	next.BoostPump = clamp(next.BoostPump)
	next.HPPump = clamp(next.HPPump)
	next.FuelFilter = clamp(next.FuelFilter)
	next.Injectors = clamp(next.Injectors)
	next.FADEC = clamp(next.FADEC)
	// FADEC has no decay rule and is left out of the overall score.
	next.Overall = (next.BoostPump + next.HPPump + next.FuelFilter + next.Injectors) / 4

	// A recovery is only reported for a component whose critical alert
	// is still latched.
	for _, c := range []struct {
		name       string
		bit        uint8
		prev, next float64
	}{
		{"Boost pump", latchBoostPump, prev.BoostPump, next.BoostPump},
		{"HP pump", latchHPPump, prev.HPPump, next.HPPump},
		{"Fuel filter", latchFuelFilter, prev.FuelFilter, next.FuelFilter},
		{"Injectors", latchInjectors, prev.Injectors, next.Injectors},
	} {
		latched := prev.Critical&c.bit != 0
		switch {
		case !latched && c.prev >= CriticalLevel && c.next < CriticalLevel:
			next.Critical |= c.bit
			add(core.SeverityAlert, msgCritical, c.name, c.next)
		case latched && c.prev <= RecoveredLevel && c.next > RecoveredLevel:
			next.Critical &^= c.bit
			add(core.SeverityInfo, msgRecovered, c.name, c.next)
		}
	}

	return Result{Health: next, Entries: entries}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}
