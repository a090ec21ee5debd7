package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/turbofuel/fueltwin/internal/session"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// StatusFile is written to the output directory on every interval.
const StatusFile = "status.json"

// Source is the part of the runner the monitor reads.
type Source interface {
	Snapshot() core.SimulationState
	SubscriberCount() int
	LastTickDuration() time.Duration
}

// WriteDurationProvider exposes the duration of the last storage write.
type WriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Source    Source
	Session   *session.Context
	Writer    WriteDurationProvider
	Logger    *slog.Logger
	OutputDir string
	Interval  time.Duration
}

// Status is the content of the status file.
type Status struct {
	Time          time.Time `json:"time"`
	RunID         string    `json:"runId,omitempty"`
	Running       bool      `json:"running"`
	Step          uint64    `json:"step"`
	SimTime       float64   `json:"simTime"`
	Throttle      float64   `json:"throttle"`
	OverallHealth float64   `json:"overallHealth"`
	ActiveFaults  []string  `json:"activeFaults"`
	Subscribers   int       `json:"subscribers"`
	LastTickMs    float64   `json:"lastTickMs"`
	LastWriteMs   float64   `json:"lastWriteMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Path returns the status file location.
func (s *Service) Path() string {
	return filepath.Join(s.deps.OutputDir, StatusFile)
}

// GetStatus collects the current status.
func (s *Service) GetStatus() Status {
	snap := s.deps.Source.Snapshot()
	st := Status{
		Time:          time.Now().UTC(),
		Running:       snap.IsRunning,
		Step:          snap.Step,
		SimTime:       snap.Time,
		Throttle:      snap.Throttle,
		OverallHealth: snap.Health.Overall,
		ActiveFaults:  []string{},
		Subscribers:   s.deps.Source.SubscriberCount(),
		LastTickMs:    float64(s.deps.Source.LastTickDuration().Microseconds()) / 1000,
	}
	for _, c := range snap.Faults.Active() {
		st.ActiveFaults = append(st.ActiveFaults, fmt.Sprintf("%s:%s", c, snap.Faults.Get(c).Kind))
	}
	if s.deps.Session != nil {
		st.RunID = s.deps.Session.RunID()
	}
	if s.deps.Writer != nil {
		st.LastWriteMs = float64(s.deps.Writer.GetLastDBWriteDuration().Microseconds()) / 1000
	}
	return st
}

// WriteStatus writes the current status file, replacing any previous one.
func (s *Service) WriteStatus() (Status, error) {
	st := s.GetStatus()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return st, fmt.Errorf("encoding status: %w", err)
	}
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return st, fmt.Errorf("writing status: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		return st, fmt.Errorf("replacing status: %w", err)
	}
	return st, nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(s.deps.OutputDir, 0o755); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("creating status dir: %w", err)
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval, "path", s.Path())

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				st, err := s.WriteStatus()
				if err != nil {
					logger.Error("Error writing status file", "error", err)
					continue
				}
				logger.Debug("Status",
					"running", st.Running,
					"step", st.Step,
					"overallHealth", st.OverallHealth,
					"subscribers", st.Subscribers,
					"lastTickMs", st.LastTickMs)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
