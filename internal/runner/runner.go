// Package runner owns the current simulation snapshot. It is the only writer;
// any number of goroutines may read the published snapshot or subscribe to
// new ones.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/turbofuel/fueltwin/internal/channel"
	"github.com/turbofuel/fueltwin/internal/engine"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// Runner serializes actions and ticks against the engine and publishes each
// resulting snapshot.
type Runner struct {
	eng    *engine.Engine
	logger *slog.Logger

	mu  sync.Mutex // serializes writers
	cur atomic.Pointer[core.SimulationState]

	subMu  sync.RWMutex
	subs   map[int]channel.Channel[core.SimulationState]
	nextID int

	lastTick atomic.Int64 // nanoseconds spent in the last tick

	ticks   metric.Int64Counter
	skipped metric.Int64Counter
	overall metric.Float64ObservableGauge
}

// New creates a Runner starting from the engine's initial state.
func New(eng *engine.Engine, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		eng:    eng,
		logger: logger,
		subs:   make(map[int]channel.Channel[core.SimulationState]),
	}
	initial := eng.Initial()
	r.cur.Store(&initial)

	m := meter()
	var err error

	r.ticks, err = m.Int64Counter(
		"runner.ticks",
		metric.WithDescription("Total running ticks processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	r.skipped, err = m.Int64Counter(
		"runner.snapshots.skipped",
		metric.WithDescription("Snapshots not delivered to a full subscriber"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating skipped counter: %w", err)
	}

	r.overall, err = m.Float64ObservableGauge(
		"runner.health.overall",
		metric.WithDescription("Overall health of the current snapshot"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating health gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveFloat64(r.overall, r.Snapshot().Health.Overall)
			return nil
		},
		r.overall,
	)
	if err != nil {
		return nil, fmt.Errorf("registering health callback: %w", err)
	}

	return r, nil
}

// Engine returns the engine the runner drives.
func (r *Runner) Engine() *engine.Engine {
	return r.eng
}

// Snapshot returns the most recently published state.
func (r *Runner) Snapshot() core.SimulationState {
	return *r.cur.Load()
}

// Tick advances one step. Ticks on a paused state publish nothing.
func (r *Runner) Tick() core.SimulationState {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := *r.cur.Load()
	if !prev.IsRunning {
		return prev
	}

	start := time.Now()
	next := r.eng.Tick(prev)
	r.lastTick.Store(int64(time.Since(start)))
	r.ticks.Add(context.Background(), 1)

	r.publish(next)
	return next
}

// SetThrottle applies a throttle setting.
func (r *Runner) SetThrottle(percent float64) core.SimulationState {
	return r.apply(func(s core.SimulationState) core.SimulationState {
		return r.eng.SetThrottle(s, percent)
	})
}

// SetFault replaces the fault on channel c.
func (r *Runner) SetFault(c core.Channel, kind core.FaultKind, magnitude float64) core.SimulationState {
	return r.apply(func(s core.SimulationState) core.SimulationState {
		return r.eng.SetFault(s, c, kind, magnitude)
	})
}

// Toggle starts or pauses the simulation.
func (r *Runner) Toggle() core.SimulationState {
	return r.apply(r.eng.Toggle)
}

// Reset restores the initial state.
func (r *Runner) Reset() core.SimulationState {
	return r.apply(r.eng.Reset)
}

func (r *Runner) apply(fn func(core.SimulationState) core.SimulationState) core.SimulationState {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := fn(*r.cur.Load())
	r.publish(next)
	return next
}

// publish must be called with mu held.
func (r *Runner) publish(s core.SimulationState) {
	r.cur.Store(&s)

	r.subMu.RLock()
	defer r.subMu.RUnlock()
	for _, ch := range r.subs {
		if !ch.TrySend(s) {
			r.skipped.Add(context.Background(), 1)
		}
	}
}

// Run ticks on every signal from t until ctx is cancelled. It stops t on
// return.
func (r *Runner) Run(ctx context.Context, t Ticker) error {
	defer t.Stop()
	r.logger.Info("Tick loop started", "interval", r.eng.TickInterval())
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Tick loop stopped", "step", r.Snapshot().Step)
			return ctx.Err()
		case <-t.C():
			r.Tick()
		}
	}
}

// Subscribe returns a channel receiving every published snapshot and a
// function that ends the subscription. A subscriber whose buffer is full
// misses snapshots instead of blocking the writer.
func (r *Runner) Subscribe(size int) (<-chan core.SimulationState, func()) {
	ch := channel.New[core.SimulationState](size)

	r.subMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	r.subMu.Unlock()

	var once sync.Once
	return ch.Receive(), func() {
		once.Do(func() {
			r.subMu.Lock()
			delete(r.subs, id)
			r.subMu.Unlock()
			ch.Close()
		})
	}
}

// SubscriberCount returns the number of active subscriptions.
func (r *Runner) SubscriberCount() int {
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	return len(r.subs)
}

// LastTickDuration returns the wall time spent computing the last tick.
func (r *Runner) LastTickDuration() time.Duration {
	return time.Duration(r.lastTick.Load())
}
