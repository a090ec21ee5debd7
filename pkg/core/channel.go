// pkg/core/channel.go
package core

import (
	"fmt"
	"strings"
)

// Channel identifies one of the sensed quantities of the fuel system.
type Channel int

const (
	ChannelN1 Channel = iota
	ChannelN2
	ChannelT45
	ChannelFuelFlow
	ChannelLowPressure
	ChannelHighPressure
	ChannelFuelQuantity
	ChannelFilterDiffPressure

	// ChannelCount is the number of sensed channels.
	ChannelCount = 8
)

var channelNames = [ChannelCount]string{
	"n1",
	"n2",
	"t45",
	"fuelFlow",
	"lowPressure",
	"highPressure",
	"fuelQuantity",
	"filterDiffPressure",
}

var channelLabels = [ChannelCount]string{
	"N1 RPM",
	"N2 RPM",
	"T45 Temp (K)",
	"Fuel Flow (L/hr)",
	"Low Pressure (kPa)",
	"High Pressure (MPa)",
	"Fuel Quantity (L)",
	"Filter dP (kPa)",
}

// Channels lists every channel in display order.
func Channels() []Channel {
	out := make([]Channel, ChannelCount)
	for i := range out {
		out[i] = Channel(i)
	}
	return out
}

// Valid reports whether c names a known channel.
func (c Channel) Valid() bool {
	return c >= 0 && int(c) < ChannelCount
}

// String returns the wire name of the channel.
func (c Channel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// Label returns the human-readable name used by the dashboard.
func (c Channel) Label() string {
	if !c.Valid() {
		return c.String()
	}
	return channelLabels[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Channel) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid channel %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Channel) UnmarshalText(text []byte) error {
	parsed, ok := ParseChannel(string(text))
	if !ok {
		return fmt.Errorf("unknown channel %q", string(text))
	}
	*c = parsed
	return nil
}

// ParseChannel resolves a wire name (case-insensitive) to a Channel.
func ParseChannel(name string) (Channel, bool) {
	name = strings.TrimSpace(name)
	for i, n := range channelNames {
		if strings.EqualFold(n, name) {
			return Channel(i), true
		}
	}
	return 0, false
}
