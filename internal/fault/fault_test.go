package fault

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turbofuel/fueltwin/pkg/core"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		fc      core.FaultConfig
		elapsed float64
		src     Source
		want    float64
	}{
		{"none", core.FaultConfig{Kind: core.FaultNone, Magnitude: 5}, 10, nil, 100},
		{"bias", core.FaultConfig{Kind: core.FaultBias, Magnitude: -12.5}, 10, nil, 87.5},
		{"drift at one minute", core.FaultConfig{Kind: core.FaultDrift, Magnitude: 6}, 60, nil, 106},
		{"drift at zero", core.FaultConfig{Kind: core.FaultDrift, Magnitude: 6}, 0, nil, 100},
		{"stuck", core.FaultConfig{Kind: core.FaultStuck, Magnitude: 42}, 10, nil, 42},
		{"noise high", core.FaultConfig{Kind: core.FaultNoise, Magnitude: 10}, 0, fixedSource(0.75), 102.5},
		{"noise low", core.FaultConfig{Kind: core.FaultNoise, Magnitude: 10}, 0, fixedSource(0), 95},
		{"clog is physics only", core.FaultConfig{Kind: core.FaultClog, Magnitude: 50}, 10, nil, 100},
		{"unknown kind", core.FaultConfig{Kind: core.FaultKind(99), Magnitude: 50}, 10, nil, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Apply(100, tt.fc, tt.elapsed, tt.src), 1e-9)
		})
	}
}

func TestNoiseStaysWithinSpan(t *testing.T) {
	src := NewSource(7)
	fc := core.FaultConfig{Kind: core.FaultNoise, Magnitude: 4}
	for range 1000 {
		v := Apply(10, fc, 0, src)
		assert.GreaterOrEqual(t, v, 8.0)
		assert.Less(t, v, 12.0)
	}
}

func TestSeededSourceIsReproducible(t *testing.T) {
	a, b := NewSource(99), NewSource(99)
	for range 10 {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestSense(t *testing.T) {
	truth := core.TrueState{Readings: core.Readings{N1RPM: 30000, T45TempK: 900, FuelQuantityL: 1000}}
	faults := core.Faults{}.
		With(core.ChannelN1, core.FaultConfig{Kind: core.FaultBias, Magnitude: 500}).
		With(core.ChannelT45, core.FaultConfig{Kind: core.FaultStuck, Magnitude: 1300})

	sensed := Sense(truth, faults, 5, fixedSource(0.5))

	assert.Equal(t, 30500.0, sensed.N1RPM)
	assert.Equal(t, 1300.0, sensed.T45TempK)
	assert.Equal(t, 1000.0, sensed.FuelQuantityL)
	assert.Equal(t, 30000.0, truth.N1RPM, "true state untouched")
}
