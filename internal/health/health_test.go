package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbofuel/fueltwin/internal/physics"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// steady is a running engine with nominal pressures and a settled T45.
func steady() core.TrueState {
	n1 := 30000.0
	return core.TrueState{Readings: core.Readings{
		N1RPM:                 n1,
		LowPressureKPA:        core.LowPressureNormalKPA,
		HighPressureMPA:       core.HighPressureNormalMPA,
		T45TempK:              physics.ExpectedT45(n1),
		FilterDiffPressureKPA: core.FilterBaselineKPA,
	}}
}

func TestHealthyEngineStaysAtFull(t *testing.T) {
	res := Estimate(core.FullHealth(), steady())

	assert.Equal(t, 100.0, res.Health.BoostPump)
	assert.Equal(t, 100.0, res.Health.HPPump)
	assert.Equal(t, 100.0, res.Health.Injectors)
	assert.InDelta(t, 100-5/39.2*50, res.Health.FuelFilter, 1e-9)
	assert.Empty(t, res.Entries)
}

func TestBoostPumpDecaysAndRecovers(t *testing.T) {
	s := steady()
	s.LowPressureKPA = 150

	h := core.FullHealth()
	for range 10 {
		h = Estimate(h, s).Health
	}
	assert.Equal(t, 90.0, h.BoostPump)

	h = Estimate(h, steady()).Health
	assert.Equal(t, 90.5, h.BoostPump, "recovers at half the decay rate")
}

func TestLowPressureIgnoredAtLowSpeed(t *testing.T) {
	s := steady()
	s.N1RPM = 4000
	s.T45TempK = physics.ExpectedT45(4000)
	s.LowPressureKPA = 0
	s.HighPressureMPA = 0

	h := core.FullHealth()
	h.BoostPump, h.HPPump = 60, 60
	res := Estimate(h, s)
	assert.Equal(t, 60.5, res.Health.BoostPump)
	assert.Equal(t, 60.5, res.Health.HPPump)
}

func TestHPPumpDecay(t *testing.T) {
	s := steady()
	s.HighPressureMPA = 4

	res := Estimate(core.FullHealth(), s)
	assert.Equal(t, 99.0, res.Health.HPPump)
}

func TestInjectorDeviationWarns(t *testing.T) {
	s := steady()
	s.T45TempK += 80

	res := Estimate(core.FullHealth(), s)
	assert.Equal(t, 99.5, res.Health.Injectors)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, core.SeverityWarning, res.Entries[0].Severity)
	assert.Equal(t, MsgInjectorDeviation, res.Entries[0].Message)
}

func TestFilterThresholds(t *testing.T) {
	tests := []struct {
		name string
		dp   float64
		want []core.LogEntry
	}{
		{"nominal", 39, nil},
		{"warning", 40, []core.LogEntry{
			{Severity: core.SeverityWarning, Message: "High filter pressure drop: 40.0 kPa"},
		}},
		{"bypass keeps the warning", 48, []core.LogEntry{
			{Severity: core.SeverityWarning, Message: "High filter pressure drop: 48.0 kPa"},
			{Severity: core.SeverityAlert, Message: "Filter bypass pressure exceeded: 48.0 kPa"},
		}},
		{"far past bypass", 50, []core.LogEntry{
			{Severity: core.SeverityWarning, Message: "High filter pressure drop: 50.0 kPa"},
			{Severity: core.SeverityAlert, Message: "Filter bypass pressure exceeded: 50.0 kPa"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := steady()
			s.FilterDiffPressureKPA = tt.dp
			h := core.FullHealth()
			h.FuelFilter = 40 // already below critical, no crossing entry

			res := Estimate(h, s)
			assert.Equal(t, tt.want, res.Entries)
		})
	}
}

func TestCriticalCrossingIsEdgeTriggered(t *testing.T) {
	s := steady()
	s.LowPressureKPA = 0

	h := core.FullHealth()
	h.BoostPump = 50.5

	res := Estimate(h, s)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, core.SeverityAlert, res.Entries[0].Severity)
	assert.Contains(t, res.Entries[0].Message, "Boost pump health critical")

	res = Estimate(res.Health, s)
	assert.Empty(t, res.Entries, "no repeat below the threshold")
}

func TestRecoveryCrossing(t *testing.T) {
	low := steady()
	low.HighPressureMPA = 0

	h := core.FullHealth()
	h.HPPump = 50.5
	res := Estimate(h, low)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, core.SeverityAlert, res.Entries[0].Severity)

	h = res.Health
	for h.HPPump <= 79.5 {
		res = Estimate(h, steady())
		assert.Empty(t, res.Entries, "no entries inside the band at %.1f", h.HPPump)
		h = res.Health
	}

	res = Estimate(h, steady())
	require.Len(t, res.Entries, 1)
	assert.Equal(t, core.SeverityInfo, res.Entries[0].Severity)
	assert.Contains(t, res.Entries[0].Message, "HP pump health recovered")

	res = Estimate(res.Health, steady())
	assert.Empty(t, res.Entries, "recovery is reported once")
}

func TestRecoveryNeedsPriorCritical(t *testing.T) {
	h := core.FullHealth()
	h.HPPump = 79.8

	res := Estimate(h, steady())
	assert.InDelta(t, 80.3, res.Health.HPPump, 1e-9)
	assert.Empty(t, res.Entries)

	s := steady()
	s.FilterDiffPressureKPA = 20
	h = Estimate(core.FullHealth(), s).Health
	require.Less(t, h.FuelFilter, RecoveredLevel)

	res = Estimate(h, steady())
	assert.Greater(t, res.Health.FuelFilter, RecoveredLevel)
	assert.Empty(t, res.Entries, "dipping under the band without going critical")
}

func TestScoresClampedAndOverallExcludesFADEC(t *testing.T) {
	s := steady()
	s.FilterDiffPressureKPA = 200
	s.LowPressureKPA = 0

	h := core.ComponentHealth{BoostPump: 0.5, HPPump: 100, FuelFilter: 0, Injectors: 100, FADEC: 10}
	res := Estimate(h, s)

	assert.Zero(t, res.Health.BoostPump)
	assert.Zero(t, res.Health.FuelFilter)
	assert.Equal(t, 100.0, res.Health.HPPump)
	assert.Equal(t, 10.0, res.Health.FADEC, "FADEC held")
	assert.Equal(t, 50.0, res.Health.Overall)
}
