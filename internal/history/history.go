// Package history keeps the bounded time series and event log of a run.
package history

import (
	"github.com/turbofuel/fueltwin/pkg/core"
)

// AppendSample appends s and keeps the newest core.MaxHistoryPoints samples.
// The input slice is never modified.
func AppendSample(list []core.HistorySample, s core.HistorySample) []core.HistorySample {
	return appendBounded(list, []core.HistorySample{s}, core.MaxHistoryPoints)
}

// AppendLogs appends entries and keeps the newest core.MaxLogEntries entries.
// The input slice is never modified.
func AppendLogs(list []core.LogEntry, entries []core.LogEntry) []core.LogEntry {
	if len(entries) == 0 {
		return list
	}
	return appendBounded(list, entries, core.MaxLogEntries)
}

// SampleOf builds the plotted sample for a state: sensed values at the
// whole second of simulation time.
func SampleOf(simTime float64, step uint64, sensed core.SensedState) core.HistorySample {
	return core.HistorySample{
		Time:         float64(int64(simTime)),
		Step:         step,
		N1RPM:        sensed.N1RPM,
		FuelFlowLPH:  sensed.FuelFlowLPH,
		HighPressure: sensed.HighPressureMPA,
		T45TempK:     sensed.T45TempK,
	}
}

func appendBounded[T any](list, add []T, capacity int) []T {
	total := len(list) + len(add)
	start := 0
	if total > capacity {
		start = total - capacity
	}
	out := make([]T, 0, min(total, capacity))
	if start < len(list) {
		out = append(out, list[start:]...)
		start = 0
	} else {
		start -= len(list)
	}
	return append(out, add[start:]...)
}
