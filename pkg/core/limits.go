// pkg/core/limits.go
package core

import "time"

// Engine and fuel system parameters (Ardiden 1H1 class turboshaft).
const (
	N1MaxRPM = 41500.0
	N2MaxRPM = 22650.0

	T45NormalLimitK    = 1152.0
	T45TakeoffLimitK   = 1201.0
	T45TransientLimitK = 1221.0

	AmbientTempK = 293.0

	LowPressureNormalKPA = 300.0
	LowPressureMinKPA    = 200.0
	LowPressureMaxKPA    = 400.0

	HighPressureNormalMPA = 7.0
	HighPressureMinMPA    = 5.5
	HighPressureMaxMPA    = 8.3

	FuelTankCapacityL = 1400.0

	FilterBaselineKPA    = 5.0
	FilterClogWarningKPA = 39.2
	FilterClogMaxKPA     = 47.1
)

// Simulation bookkeeping limits.
const (
	DefaultTickInterval = 500 * time.Millisecond
	MaxHistoryPoints    = 100
	MaxLogEntries       = 50
)
