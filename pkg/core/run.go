// pkg/core/run.go
package core

import (
	"time"

	"github.com/google/uuid"
)

// Run describes one recorded simulation session.
type Run struct {
	ID           uuid.UUID
	Name         string
	StartTime    time.Time
	TickInterval time.Duration
	Seed         uint64
	Tag          string
	AppVersion   string
}

// NewRun creates a Run with a fresh random id.
func NewRun(name string, start time.Time, tick time.Duration) *Run {
	return &Run{
		ID:           uuid.New(),
		Name:         name,
		StartTime:    start,
		TickInterval: tick,
	}
}

// Frame is the record of one running tick.
type Frame struct {
	Step     uint64          `json:"step"`
	Time     float64         `json:"time"`
	Throttle float64         `json:"throttle"`
	True     TrueState       `json:"trueState"`
	Sensed   SensedState     `json:"sensedState"`
	Health   ComponentHealth `json:"health"`
	Faults   Faults          `json:"faults"`
}

// FrameOf extracts the recordable part of a snapshot.
func FrameOf(s SimulationState) Frame {
	return Frame{
		Step:     s.Step,
		Time:     s.Time,
		Throttle: s.Throttle,
		True:     s.True,
		Sensed:   s.Sensed,
		Health:   s.Health,
		Faults:   s.Faults,
	}
}

// UploadMetadata is sent alongside an exported recording.
type UploadMetadata struct {
	RunID       string
	RunName     string
	RunDuration float64
	Frames      int
	Tag         string
}
