package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbofuel/fueltwin/internal/fault"
	"github.com/turbofuel/fueltwin/pkg/core"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(opts ...Option) *Engine {
	base := []Option{
		WithClock(func() time.Time { return epoch }),
		WithRandSource(fault.NewSource(1)),
	}
	return New(append(base, opts...)...)
}

func running(e *Engine) core.SimulationState {
	return e.Toggle(e.Initial())
}

func TestPausedTickIsIdentity(t *testing.T) {
	e := newTestEngine()
	s := e.SetThrottle(e.Initial(), 80)

	assert.Equal(t, s, e.Tick(s))
	assert.Equal(t, s, e.Tick(e.Tick(s)))
}

func TestTimeAdvancesByTickInterval(t *testing.T) {
	e := newTestEngine(WithTickInterval(250 * time.Millisecond))
	s := running(e)
	for i := range 20 {
		next := e.Tick(s)
		assert.InDelta(t, s.Time+0.25, next.Time, 1e-9)
		assert.Equal(t, uint64(i+1), next.Step)
		s = next
	}
}

func TestTrueStateNeverNegative(t *testing.T) {
	e := newTestEngine()
	s := running(e)
	s = e.SetFault(s, core.ChannelFilterDiffPressure, core.FaultClog, -3000)
	throttles := []float64{100, 0, 55, 100, 0}
	for i := range 500 {
		s = e.SetThrottle(s, throttles[i%len(throttles)])
		s = e.Tick(s)
		for _, c := range core.Channels() {
			require.GreaterOrEqual(t, s.True.Get(c), 0.0, "%s at tick %d", c, i)
		}
	}
}

func TestHistoryWindow(t *testing.T) {
	e := newTestEngine()
	s := running(e)
	s = e.SetThrottle(s, 60)
	for range 130 {
		s = e.Tick(s)
		assert.LessOrEqual(t, len(s.Logs), core.MaxLogEntries)
	}
	require.Len(t, s.History, core.MaxHistoryPoints)
	assert.Equal(t, uint64(31), s.History[0].Step, "sample of tick 30 evicted after tick 130")
	assert.Equal(t, uint64(130), s.History[99].Step)
}

func TestStuckFault(t *testing.T) {
	e := newTestEngine()
	s := running(e)
	s = e.SetThrottle(s, 100)
	s = e.SetFault(s, core.ChannelT45, core.FaultStuck, 812)
	for range 30 {
		s = e.Tick(s)
		assert.Equal(t, 812.0, s.Sensed.T45TempK)
	}
	assert.NotEqual(t, 812.0, s.True.T45TempK)
}

func TestBiasFault(t *testing.T) {
	e := newTestEngine()
	s := running(e)
	s = e.SetThrottle(s, 70)
	s = e.SetFault(s, core.ChannelHighPressure, core.FaultBias, 0.75)
	for range 30 {
		s = e.Tick(s)
		assert.Equal(t, s.True.HighPressureMPA+0.75, s.Sensed.HighPressureMPA)
	}
}

func TestDriftUsesElapsedTime(t *testing.T) {
	e := newTestEngine()
	s := running(e)
	s = e.SetFault(s, core.ChannelFuelQuantity, core.FaultDrift, -12)
	for range 240 {
		s = e.Tick(s)
	}
	assert.InDelta(t, 120.0, s.Time, 1e-9)
	assert.InDelta(t, s.True.FuelQuantityL-24, s.Sensed.FuelQuantityL, 1e-9)
}

func TestClogAccumulation(t *testing.T) {
	e := newTestEngine()
	s := running(e)
	s = e.SetThrottle(s, 90)
	s = e.SetFault(s, core.ChannelFilterDiffPressure, core.FaultClog, 40)
	prev := s.True.FilterDiffPressureKPA
	for range 60 {
		s = e.Tick(s)
		assert.InDelta(t, prev+0.04, s.True.FilterDiffPressureKPA, 1e-9)
		prev = s.True.FilterDiffPressureKPA
	}
}

func TestFullThrottleSpoolUp(t *testing.T) {
	e := newTestEngine()
	s := running(e)
	s = e.SetThrottle(s, 100)
	for range 50 {
		next := e.Tick(s)
		if core.N1MaxRPM-s.True.N1RPM > 1 {
			assert.Greater(t, next.True.N1RPM, s.True.N1RPM)
		}
		assert.Less(t, next.True.FuelQuantityL, s.True.FuelQuantityL)
		s = next
	}
	// 0.9^50 of the initial gap remains.
	assert.InDelta(t, core.N1MaxRPM, s.True.N1RPM, core.N1MaxRPM*math.Pow(0.9, 50)+1)
}

func TestResetAfterRunning(t *testing.T) {
	e := newTestEngine()
	s := running(e)
	s = e.SetThrottle(s, 100)
	s = e.SetFault(s, core.ChannelN1, core.FaultNoise, 300)
	for range 40 {
		s = e.Tick(s)
	}

	r := e.Reset(s)
	want := core.InitialState(epoch)
	want.IsRunning = true
	assert.Equal(t, want, r)

	paused := e.Reset(e.Toggle(s))
	assert.False(t, paused.IsRunning)
}

func TestResetKeepsControlsWhenConfigured(t *testing.T) {
	e := newTestEngine(WithResetKeepsControls(true))
	s := e.SetThrottle(running(e), 65)
	s = e.SetFault(s, core.ChannelN2, core.FaultBias, 10)
	s = e.Tick(s)

	r := e.Reset(s)
	assert.Equal(t, 65.0, r.Throttle)
	assert.Equal(t, core.FaultBias, r.Faults.Get(core.ChannelN2).Kind)
	assert.Equal(t, core.InitialReadings(), r.True.Readings)
}

func TestSetThrottleNormalizes(t *testing.T) {
	e := newTestEngine()
	s := e.Initial()

	assert.Equal(t, 100.0, e.SetThrottle(s, 250).Throttle)
	assert.Equal(t, 0.0, e.SetThrottle(s, -3).Throttle)
	assert.Equal(t, 42.5, e.SetThrottle(s, 42.5).Throttle)

	s = e.SetThrottle(s, 30)
	assert.Equal(t, 30.0, e.SetThrottle(s, math.NaN()).Throttle)
}

func TestSetFaultNormalizes(t *testing.T) {
	e := newTestEngine()
	s := e.Initial()

	assert.Equal(t, s, e.SetFault(s, core.Channel(12), core.FaultBias, 1))

	s = e.SetFault(s, core.ChannelN1, core.FaultBias, math.Inf(1))
	assert.Equal(t, core.FaultConfig{Kind: core.FaultBias}, s.Faults.Get(core.ChannelN1))
}

func TestTickLeavesInputUntouched(t *testing.T) {
	e := newTestEngine()
	s := running(e)
	s = e.SetThrottle(s, 100)
	for range 5 {
		s = e.Tick(s)
	}
	before := s.Clone()
	_ = e.Tick(s)
	_ = e.Tick(s)
	assert.Equal(t, before, s)
}

func TestLogEntriesStamped(t *testing.T) {
	e := newTestEngine()
	s := running(e)
	s = e.SetThrottle(s, 100)
	s = e.Tick(s)

	require.Greater(t, len(s.Logs), 1, "spool-up lags T45 and flags the injectors")
	last := s.Logs[len(s.Logs)-1]
	assert.Equal(t, epoch, last.Timestamp)
	assert.Equal(t, uint64(1), last.Step)
	assert.InDelta(t, 0.5, last.SimTime, 1e-9)
}

func TestThrottleCycleReportsNoRecovery(t *testing.T) {
	e := newTestEngine()
	s := running(e)

	var entries []core.LogEntry
	run := func(throttle float64, ticks int) {
		s = e.SetThrottle(s, throttle)
		for range ticks {
			s = e.Tick(s)
			for _, l := range s.Logs {
				if l.Step == s.Step {
					entries = append(entries, l)
				}
			}
		}
	}
	run(100, 200)
	run(0, 60)

	for _, l := range entries {
		assert.NotEqual(t, core.SeverityInfo, l.Severity, "unexpected entry at step %d: %s", l.Step, l.Message)
		assert.NotContains(t, l.Message, "critical")
	}
	assert.Zero(t, s.Health.Critical)
}
