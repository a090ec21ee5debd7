// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/turbofuel/fueltwin/internal/model"
	"github.com/turbofuel/fueltwin/pkg/core"
	"gorm.io/datatypes"
)

func readingsToGorm(r core.Readings) model.Readings {
	return model.Readings{
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

// faultsToJSON converts the fault table to datatypes.JSON for DB storage.
func faultsToJSON(f core.Faults) datatypes.JSON {
	data, err := json.Marshal(f)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToRun converts a core.Run to a GORM model.Run. The row id is left for the database.
func CoreToRun(r core.Run) model.Run {
	return model.Run{
		UUID:           r.ID.String(),
		Name:           r.Name,
		Tag:            r.Tag,
		AppVersion:     r.AppVersion,
		StartTime:      r.StartTime,
		TickIntervalMs: float64(r.TickInterval.Microseconds()) / 1000,
		Seed:           int64(r.Seed),
	}
}

// CoreToFrame converts a core.Frame to a GORM model.Frame belonging to runID.
func CoreToFrame(runID uint, f core.Frame) model.Frame {
	return model.Frame{
		RunID:    runID,
		Step:     uint(f.Step),
		SimTime:  f.Time,
		Throttle: f.Throttle,
		True:     readingsToGorm(f.True.Readings),
		Sensed:   readingsToGorm(f.Sensed.Readings),
		Health: model.Health{
			BoostPump:  f.Health.BoostPump,
			HPPump:     f.Health.HPPump,
			FuelFilter: f.Health.FuelFilter,
			Injectors:  f.Health.Injectors,
			FADEC:      f.Health.FADEC,
			Overall:    f.Health.Overall,
		},
		Faults: faultsToJSON(f.Faults),
	}
}

// CoreToEvent converts a core.LogEntry to a GORM model.Event belonging to runID.
func CoreToEvent(runID uint, e core.LogEntry) model.Event {
	return model.Event{
		RunID:    runID,
		Time:     e.Timestamp,
		Step:     uint(e.Step),
		SimTime:  e.SimTime,
		Severity: string(e.Severity),
		Message:  e.Message,
	}
}
