// Package worker connects the command dispatcher to the runner and records
// published snapshots into a storage backend.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/turbofuel/fueltwin/internal/parser"
	"github.com/turbofuel/fueltwin/internal/runner"
	"github.com/turbofuel/fueltwin/internal/session"
	"github.com/turbofuel/fueltwin/internal/storage"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// DefaultSubscriptionBuffer is the snapshot buffer used by Record.
const DefaultSubscriptionBuffer = 1024

// ErrNoRun is returned by EndRun when no run was started.
var ErrNoRun = errors.New("no run in progress")

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Runner  *runner.Runner
	Parser  *parser.Parser
	Session *session.Context
	Logger  *slog.Logger
}

// Manager applies control commands and records what the runner publishes
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	mu       sync.Mutex
	run      *core.Run
	lastStep uint64
	frames   int
	failures int
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// Backend returns the storage backend frames are recorded to.
func (m *Manager) Backend() storage.Backend {
	return m.backend
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	var longest time.Duration
	for _, b := range backends(m.backend) {
		if p, ok := b.(DBWriteDurationProvider); ok && p.GetLastDBWriteDuration() > longest {
			longest = p.GetLastDBWriteDuration()
		}
	}
	return longest
}

func backends(b storage.Backend) []storage.Backend {
	if multi, ok := b.(*storage.Multi); ok {
		return multi.Backends()
	}
	return []storage.Backend{b}
}

// StartRun begins a recording. Recording starts after the current step, so
// the snapshot already published is not recorded twice.
func (m *Manager) StartRun(run *core.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.backend.StartRun(run); err != nil {
		return fmt.Errorf("starting run %s: %w", run.Name, err)
	}
	m.run = run
	m.lastStep = m.deps.Runner.Snapshot().Step
	m.frames = 0
	m.failures = 0
	m.deps.Session.SetRun(run)

	m.deps.Logger.Info("Run started",
		"runId", run.ID.String(),
		"name", run.Name,
		"tickInterval", run.TickInterval)
	return nil
}

// EndRun finishes the current recording.
func (m *Manager) EndRun() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run == nil {
		return ErrNoRun
	}
	err := m.backend.EndRun()
	m.deps.Logger.Info("Run ended",
		"runId", m.run.ID.String(),
		"frames", m.frames,
		"failedWrites", m.failures)
	m.run = nil
	m.deps.Session.SetRun(nil)
	if err != nil {
		return fmt.Errorf("ending run: %w", err)
	}
	return nil
}

// Frames returns the number of frames recorded in the current run.
func (m *Manager) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// Observe records s if it is newer than the last recorded step. A step
// lower than the last one means the simulation was reset; recording
// continues from there. Log entries carry the step that produced them, so
// entries of ticks that were never observed are still recorded.
func (m *Manager) Observe(s core.SimulationState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run == nil {
		return
	}
	if s.Step < m.lastStep {
		m.deps.Logger.Info("Simulation reset during run", "fromStep", m.lastStep)
		m.lastStep = 0
	}
	if s.Step == m.lastStep {
		return
	}

	for i := range s.Logs {
		e := s.Logs[i]
		if e.Step <= m.lastStep {
			continue
		}
		if err := m.backend.RecordEvent(&e); err != nil {
			m.failures++
			m.deps.Logger.Error("Failed to record event", "step", e.Step, "error", err)
		}
	}

	f := core.FrameOf(s)
	if err := m.backend.RecordFrame(&f); err != nil {
		m.failures++
		m.deps.Logger.Error("Failed to record frame", "step", f.Step, "error", err)
	} else {
		m.frames++
	}
	m.lastStep = s.Step
}

// Record observes every snapshot the runner publishes until ctx is done.
func (m *Manager) Record(ctx context.Context) error {
	ch, cancel := m.deps.Runner.Subscribe(DefaultSubscriptionBuffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			// drain what was published before cancellation
			for {
				select {
				case s := <-ch:
					m.Observe(s)
				default:
					return ctx.Err()
				}
			}
		case s := <-ch:
			m.Observe(s)
		}
	}
}
