package convert

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/turbofuel/fueltwin/internal/model"
	"github.com/turbofuel/fueltwin/pkg/core"
)

func readingsToCore(r model.Readings) core.Readings {
	return core.Readings{
		N1RPM:                 r.N1RPM,
		N2RPM:                 r.N2RPM,
		T45TempK:              r.T45TempK,
		FuelFlowLPH:           r.FuelFlowLPH,
		LowPressureKPA:        r.LowPressureKPA,
		HighPressureMPA:       r.HighPressureMPA,
		FuelQuantityL:         r.FuelQuantityL,
		FilterDiffPressureKPA: r.FilterDiffPressureKPA,
	}
}

// RunToCore converts a GORM Run to a core.Run. An unparsable UUID yields uuid.Nil.
func RunToCore(r model.Run) core.Run {
	id, err := uuid.Parse(r.UUID)
	if err != nil {
		id = uuid.Nil
	}
	return core.Run{
		ID:           id,
		Name:         r.Name,
		StartTime:    r.StartTime,
		TickInterval: time.Duration(r.TickIntervalMs * float64(time.Millisecond)),
		Seed:         uint64(r.Seed),
		Tag:          r.Tag,
		AppVersion:   r.AppVersion,
	}
}

// FrameToCore converts a GORM Frame to a core.Frame. Malformed fault JSON
// decodes as no faults.
func FrameToCore(f model.Frame) core.Frame {
	var faults core.Faults
	if len(f.Faults) > 0 {
		if err := json.Unmarshal(f.Faults, &faults); err != nil {
			faults = core.Faults{}
		}
	}
	return core.Frame{
		Step:     uint64(f.Step),
		Time:     f.SimTime,
		Throttle: f.Throttle,
		True:     core.TrueState{Readings: readingsToCore(f.True)},
		Sensed:   core.SensedState{Readings: readingsToCore(f.Sensed)},
		Health: core.ComponentHealth{
			BoostPump:  f.Health.BoostPump,
			HPPump:     f.Health.HPPump,
			FuelFilter: f.Health.FuelFilter,
			Injectors:  f.Health.Injectors,
			FADEC:      f.Health.FADEC,
			Overall:    f.Health.Overall,
		},
		Faults: faults,
	}
}

// EventToCore converts a GORM Event to a core.LogEntry.
func EventToCore(e model.Event) core.LogEntry {
	return core.LogEntry{
		Timestamp: e.Time,
		SimTime:   e.SimTime,
		Step:      uint64(e.Step),
		Message:   e.Message,
		Severity:  core.Severity(e.Severity),
	}
}

// FramesToCore converts a slice of GORM frames in order.
func FramesToCore(frames []model.Frame) []core.Frame {
	out := make([]core.Frame, len(frames))
	for i, f := range frames {
		out[i] = FrameToCore(f)
	}
	return out
}

// EventsToCore converts a slice of GORM events in order.
func EventsToCore(events []model.Event) []core.LogEntry {
	out := make([]core.LogEntry, len(events))
	for i, e := range events {
		out[i] = EventToCore(e)
	}
	return out
}
