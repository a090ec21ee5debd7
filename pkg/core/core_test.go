package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in   string
		want Channel
		ok   bool
	}{
		{"n1", ChannelN1, true},
		{"N2", ChannelN2, true},
		{" t45 ", ChannelT45, true},
		{"fuelflow", ChannelFuelFlow, true},
		{"filterDiffPressure", ChannelFilterDiffPressure, true},
		{"oilPressure", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseChannel(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestChannelRoundTripsThroughReadings(t *testing.T) {
	var r Readings
	for i, c := range Channels() {
		r = r.With(c, float64(i+1))
	}
	for i, c := range Channels() {
		assert.Equal(t, float64(i+1), r.Get(c), c.String())
	}

	assert.Equal(t, 0.0, r.Get(Channel(42)))
	assert.Equal(t, r, r.With(Channel(-1), 99))
}

func TestParseFaultKind(t *testing.T) {
	tests := map[string]FaultKind{
		"None":             FaultNone,
		"bias":             FaultBias,
		"Bias/Offset":      FaultBias,
		"Drift":            FaultDrift,
		"Stuck-at-Value":   FaultStuck,
		"STUCK":            FaultStuck,
		"Noise":            FaultNoise,
		"Progressive Clog": FaultClog,
		"clog":             FaultClog,
	}
	for in, want := range tests {
		got, ok := ParseFaultKind(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseFaultKind("Explode")
	assert.False(t, ok)
}

func TestFaultsWithCopies(t *testing.T) {
	var f Faults
	g := f.With(ChannelT45, FaultConfig{Kind: FaultStuck, Magnitude: 900})

	assert.Equal(t, FaultNone, f.Get(ChannelT45).Kind, "original must not change")
	assert.Equal(t, FaultStuck, g.Get(ChannelT45).Kind)
	assert.Equal(t, []Channel{ChannelT45}, g.Active())
}

func TestFaultsJSON(t *testing.T) {
	f := Faults{}.With(ChannelFilterDiffPressure, FaultConfig{Kind: FaultClog, Magnitude: 20})

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"filterDiffPressure":{"type":"Progressive Clog","value":20}`)

	var back Faults
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, f, back)

	assert.Error(t, json.Unmarshal([]byte(`{"oil":{"type":"None","value":0}}`), &back))
}

func TestInitialState(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := InitialState(ts)

	assert.False(t, s.IsRunning)
	assert.Zero(t, s.Time)
	assert.Equal(t, AmbientTempK, s.True.T45TempK)
	assert.Equal(t, FuelTankCapacityL, s.Sensed.FuelQuantityL)
	assert.Equal(t, FilterBaselineKPA, s.True.FilterDiffPressureKPA)
	assert.Equal(t, FullHealth(), s.Health)
	require.Len(t, s.Logs, 1)
	assert.Equal(t, InitialMessage, s.Logs[0].Message)
	assert.Equal(t, ts, s.Logs[0].Timestamp)
	assert.Empty(t, s.History)
}

func TestCloneDoesNotShareSlices(t *testing.T) {
	s := InitialState(time.Time{})
	c := s.Clone()
	c.Logs[0].Message = "changed"

	assert.Equal(t, InitialMessage, s.Logs[0].Message)
}

func TestSnapshotJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(InitialState(time.Time{}))
	require.NoError(t, err)

	for _, key := range []string{`"trueState"`, `"n1_rpm"`, `"fuelQuantity_l"`, `"isRunning"`, `"overall"`} {
		assert.Contains(t, string(data), key)
	}
}
