// pkg/core/fault.go
package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FaultKind selects how a sensed channel is corrupted.
type FaultKind int

const (
	FaultNone FaultKind = iota
	FaultBias
	FaultDrift
	FaultStuck
	FaultNoise
	// FaultClog is consumed by the physics model on the filter dP channel,
	// not by the sensor fault model.
	FaultClog
)

// String returns the dashboard label for the fault kind.
func (k FaultKind) String() string {
	switch k {
	case FaultNone:
		return "None"
	case FaultBias:
		return "Bias/Offset"
	case FaultDrift:
		return "Drift"
	case FaultStuck:
		return "Stuck-at-Value"
	case FaultNoise:
		return "Noise"
	case FaultClog:
		return "Progressive Clog"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k FaultKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FaultKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseFaultKind(string(text))
	if !ok {
		return fmt.Errorf("unknown fault kind %q", string(text))
	}
	*k = parsed
	return nil
}

// ParseFaultKind accepts both the short names (Bias, Stuck, Clog) and the
// dashboard labels (Bias/Offset, Stuck-at-Value, Progressive Clog).
func ParseFaultKind(s string) (FaultKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return FaultNone, true
	case "bias", "bias/offset", "offset":
		return FaultBias, true
	case "drift":
		return FaultDrift, true
	case "stuck", "stuck-at-value":
		return FaultStuck, true
	case "noise":
		return FaultNoise, true
	case "clog", "progressive clog":
		return FaultClog, true
	default:
		return FaultNone, false
	}
}

// FaultConfig is the fault applied to one channel. Magnitude is interpreted
// per kind: offset, units per minute, stuck value, noise span or clog rate.
type FaultConfig struct {
	Kind      FaultKind `json:"type"`
	Magnitude float64   `json:"value"`
}

// Faults holds one FaultConfig per channel, indexed by Channel.
type Faults [ChannelCount]FaultConfig

// Get returns the fault configured on c.
func (f Faults) Get(c Channel) FaultConfig {
	if !c.Valid() {
		return FaultConfig{}
	}
	return f[c]
}

// With returns a copy of f with c's fault replaced.
func (f Faults) With(c Channel, fc FaultConfig) Faults {
	if c.Valid() {
		f[c] = fc
	}
	return f
}

// Active returns the channels carrying a fault other than None.
func (f Faults) Active() []Channel {
	var out []Channel
	for i, fc := range f {
		if fc.Kind != FaultNone {
			out = append(out, Channel(i))
		}
	}
	return out
}

// MarshalJSON renders faults keyed by channel name, matching the dashboard shape.
func (f Faults) MarshalJSON() ([]byte, error) {
	m := make(map[string]FaultConfig, ChannelCount)
	for i, fc := range f {
		m[Channel(i).String()] = fc
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads the object form produced by MarshalJSON.
func (f *Faults) UnmarshalJSON(data []byte) error {
	var m map[string]FaultConfig
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out Faults
	for name, fc := range m {
		c, ok := ParseChannel(name)
		if !ok {
			return fmt.Errorf("unknown channel %q", name)
		}
		out[c] = fc
	}
	*f = out
	return nil
}
