// pkg/core/state.go
package core

import "time"

// Readings is the field set shared by the true and the sensed view of the
// fuel system.
type Readings struct {
	N1RPM                 float64 `json:"n1_rpm"`
	N2RPM                 float64 `json:"n2_rpm"`
	T45TempK              float64 `json:"t45_temp_k"`
	FuelFlowLPH           float64 `json:"fuelFlow_lph"`
	LowPressureKPA        float64 `json:"lowPressure_kpa"`
	HighPressureMPA       float64 `json:"highPressure_mpa"`
	FuelQuantityL         float64 `json:"fuelQuantity_l"`
	FilterDiffPressureKPA float64 `json:"filterDiffPressure_kpa"`
}

// Get returns the value of channel c, or 0 for an unknown channel.
func (r Readings) Get(c Channel) float64 {
	switch c {
	case ChannelN1:
		return r.N1RPM
	case ChannelN2:
		return r.N2RPM
	case ChannelT45:
		return r.T45TempK
	case ChannelFuelFlow:
		return r.FuelFlowLPH
	case ChannelLowPressure:
		return r.LowPressureKPA
	case ChannelHighPressure:
		return r.HighPressureMPA
	case ChannelFuelQuantity:
		return r.FuelQuantityL
	case ChannelFilterDiffPressure:
		return r.FilterDiffPressureKPA
	default:
		return 0
	}
}

// With returns a copy of r with channel c set to v.
func (r Readings) With(c Channel, v float64) Readings {
	switch c {
	case ChannelN1:
		r.N1RPM = v
	case ChannelN2:
		r.N2RPM = v
	case ChannelT45:
		r.T45TempK = v
	case ChannelFuelFlow:
		r.FuelFlowLPH = v
	case ChannelLowPressure:
		r.LowPressureKPA = v
	case ChannelHighPressure:
		r.HighPressureMPA = v
	case ChannelFuelQuantity:
		r.FuelQuantityL = v
	case ChannelFilterDiffPressure:
		r.FilterDiffPressureKPA = v
	}
	return r
}

// TrueState is the ground-truth physical state. Only the physics model
// produces new values.
type TrueState struct {
	Readings
}

// SensedState is what the instruments report, derived from TrueState through
// the per-channel fault configuration.
type SensedState struct {
	Readings
}

// ComponentHealth holds 0-100 degradation scores.
type ComponentHealth struct {
	BoostPump  float64 `json:"boostPump"`
	HPPump     float64 `json:"hpPump"`
	FuelFilter float64 `json:"fuelFilter"`
	Injectors  float64 `json:"injectors"`
	FADEC      float64 `json:"fadec"`
	Overall    float64 `json:"overall"`

	// Critical has one bit per component that went critical and has not
	// recovered since.
	Critical uint8 `json:"-"`
}

// Severity classifies a log entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityAlert   Severity = "alert"
)

// LogEntry is one line of the simulation event log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	SimTime   float64   `json:"simTime"`
	Step      uint64    `json:"step"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
}

// HistorySample is one plotted point of the time-series history, taken from
// the sensed values.
type HistorySample struct {
	Time         float64 `json:"time"`
	Step         uint64  `json:"step"`
	N1RPM        float64 `json:"N1 RPM"`
	FuelFlowLPH  float64 `json:"Fuel Flow"`
	HighPressure float64 `json:"HP"`
	T45TempK     float64 `json:"T45"`
}

// SimulationState is the aggregate root. A value is never modified after it
// has been published; transitions return a new value.
type SimulationState struct {
	IsRunning bool            `json:"isRunning"`
	Time      float64         `json:"time"`
	Step      uint64          `json:"step"`
	Throttle  float64         `json:"throttle"`
	True      TrueState       `json:"trueState"`
	Sensed    SensedState     `json:"sensedState"`
	Faults    Faults          `json:"faults"`
	Health    ComponentHealth `json:"health"`
	Logs      []LogEntry      `json:"logs"`
	History   []HistorySample `json:"history"`
}

// Clone returns a deep copy of s; slices are not shared with the original.
func (s SimulationState) Clone() SimulationState {
	out := s
	if s.Logs != nil {
		out.Logs = append([]LogEntry(nil), s.Logs...)
	}
	if s.History != nil {
		out.History = append([]HistorySample(nil), s.History...)
	}
	return out
}

// InitialReadings is the engine at rest with a full tank.
func InitialReadings() Readings {
	return Readings{
		T45TempK:              AmbientTempK,
		FuelQuantityL:         FuelTankCapacityL,
		FilterDiffPressureKPA: FilterBaselineKPA,
	}
}

// FullHealth has every component at 100.
func FullHealth() ComponentHealth {
	return ComponentHealth{
		BoostPump:  100,
		HPPump:     100,
		FuelFilter: 100,
		Injectors:  100,
		FADEC:      100,
		Overall:    100,
	}
}

// InitialMessage is the first log entry of every fresh state.
const InitialMessage = "Simulation initialized."

// InitialState returns the documented starting state, stamped with ts.
func InitialState(ts time.Time) SimulationState {
	r := InitialReadings()
	return SimulationState{
		True:    TrueState{Readings: r},
		Sensed:  SensedState{Readings: r},
		Health:  FullHealth(),
		Logs:    []LogEntry{{Timestamp: ts, Message: InitialMessage, Severity: SeverityInfo}},
		History: []HistorySample{},
	}
}
