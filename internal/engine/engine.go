// Package engine composes physics, faults, health and history into the
// simulation transition function and its control actions.
//
// Every method takes a snapshot and returns a new one; the input is never
// modified, so any snapshot can be kept for inspection or replay.
package engine

import (
	"math"
	"time"

	"github.com/turbofuel/fueltwin/internal/fault"
	"github.com/turbofuel/fueltwin/internal/health"
	"github.com/turbofuel/fueltwin/internal/history"
	"github.com/turbofuel/fueltwin/internal/physics"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// Engine holds the fixed parameters of the transition function.
type Engine struct {
	tick               time.Duration
	src                fault.Source
	now                func() time.Time
	resetKeepsControls bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTickInterval sets the logical duration of one tick.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tick = d
		}
	}
}

// WithRandSource sets the random source used by the noise fault.
func WithRandSource(src fault.Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.src = src
		}
	}
}

// WithClock sets the wall clock used to stamp log entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithResetKeepsControls makes Reset retain the throttle and fault settings.
func WithResetKeepsControls(keep bool) Option {
	return func(e *Engine) {
		e.resetKeepsControls = keep
	}
}

// New creates an Engine with a 500ms tick and an unseeded noise source.
func New(opts ...Option) *Engine {
	e := &Engine{
		tick: core.DefaultTickInterval,
		src:  fault.NewSource(0),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TickInterval returns the logical duration of one tick.
func (e *Engine) TickInterval() time.Duration {
	return e.tick
}

// Initial returns the documented starting state.
func (e *Engine) Initial() core.SimulationState {
	return core.InitialState(e.now())
}

// Tick advances a running state by one step. A paused state is returned as is.
func (e *Engine) Tick(s core.SimulationState) core.SimulationState {
	if !s.IsRunning {
		return s
	}

	next := s
	next.Step = s.Step + 1
	next.Time = s.Time + e.tick.Seconds()

	next.True = physics.Step(s.True, s.Throttle, s.Faults.Get(core.ChannelFilterDiffPressure), e.tick)
	next.Sensed = fault.Sense(next.True, s.Faults, next.Time, e.src)

	res := health.Estimate(s.Health, next.True)
	next.Health = res.Health

	ts := e.now()
	for i := range res.Entries {
		res.Entries[i].Timestamp = ts
		res.Entries[i].SimTime = next.Time
		res.Entries[i].Step = next.Step
	}
	next.Logs = history.AppendLogs(s.Logs, res.Entries)
	next.History = history.AppendSample(s.History, history.SampleOf(next.Time, next.Step, next.Sensed))

	return next
}

// SetThrottle sets the throttle, clamped to [0,100]. NaN is ignored.
func (e *Engine) SetThrottle(s core.SimulationState, percent float64) core.SimulationState {
	if math.IsNaN(percent) {
		return s
	}
	s.Throttle = math.Min(100, math.Max(0, percent))
	return s
}

// SetFault replaces the fault configuration of channel c. An unknown channel
// leaves the state unchanged; a non-finite magnitude is stored as 0.
func (e *Engine) SetFault(s core.SimulationState, c core.Channel, kind core.FaultKind, magnitude float64) core.SimulationState {
	if !c.Valid() {
		return s
	}
	if math.IsNaN(magnitude) || math.IsInf(magnitude, 0) {
		magnitude = 0
	}
	s.Faults = s.Faults.With(c, core.FaultConfig{Kind: kind, Magnitude: magnitude})
	return s
}

// Toggle flips between running and paused.
func (e *Engine) Toggle(s core.SimulationState) core.SimulationState {
	s.IsRunning = !s.IsRunning
	return s
}

// Reset restores the initial state, preserving whether the run is active.
func (e *Engine) Reset(s core.SimulationState) core.SimulationState {
	next := e.Initial()
	next.IsRunning = s.IsRunning
	if e.resetKeepsControls {
		next.Throttle = s.Throttle
		next.Faults = s.Faults
	}
	return next
}
