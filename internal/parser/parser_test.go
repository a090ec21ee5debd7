package parser

import (
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbofuel/fueltwin/pkg/core"
)

func newTestParser() *Parser {
	return NewParser(slog.Default())
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr error
	}{
		{"integer", "32", 32, nil},
		{"decimal", "32.50", 32.5, nil},
		{"quoted", `"75"`, 75, nil},
		{"negative", "-1.5", -1.5, nil},
		{"padded", "  10 ", 10, nil},
		{"nan", "NaN", 0, ErrNotFinite},
		{"inf", "+Inf", 0, ErrNotFinite},
		{"empty", "", 0, strconv.ErrSyntax},
		{"text", "abc", 0, strconv.ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFloat(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseThrottle(t *testing.T) {
	p := newTestParser()

	v, err := p.ParseThrottle([]string{"85"})
	require.NoError(t, err)
	assert.Equal(t, 85.0, v)

	v, err = p.ParseThrottle([]string{"140"})
	require.NoError(t, err, "clamping happens in the engine")
	assert.Equal(t, 140.0, v)

	_, err = p.ParseThrottle(nil)
	assert.ErrorIs(t, err, ErrArgCount)

	_, err = p.ParseThrottle([]string{"1", "2"})
	assert.ErrorIs(t, err, ErrArgCount)

	_, err = p.ParseThrottle([]string{"nan"})
	assert.ErrorIs(t, err, ErrNotFinite)
}

func TestParseFault(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name    string
		args    []string
		want    FaultCommand
		wantErr error
	}{
		{
			name: "bias label",
			args: []string{"n1", "Bias/Offset", "250"},
			want: FaultCommand{Channel: core.ChannelN1, Kind: core.FaultBias, Magnitude: 250},
		},
		{
			name: "quoted clog",
			args: []string{`"filterDiffPressure"`, `"Progressive Clog"`, `"20"`},
			want: FaultCommand{Channel: core.ChannelFilterDiffPressure, Kind: core.FaultClog, Magnitude: 20},
		},
		{
			name: "none without magnitude",
			args: []string{"t45", "None"},
			want: FaultCommand{Channel: core.ChannelT45, Kind: core.FaultNone},
		},
		{name: "unknown channel", args: []string{"oil", "Bias", "1"}, wantErr: ErrUnknownChannel},
		{name: "unknown kind", args: []string{"n1", "Melt", "1"}, wantErr: ErrUnknownFaultKind},
		{name: "bad magnitude", args: []string{"n1", "Bias", "inf"}, wantErr: ErrNotFinite},
		{name: "too few", args: []string{"n1"}, wantErr: ErrArgCount},
		{name: "too many", args: []string{"n1", "Bias", "1", "2"}, wantErr: ErrArgCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseFault(tt.args)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNone(t *testing.T) {
	p := newTestParser()
	assert.NoError(t, p.ParseNone(":TICK:", nil))
	assert.ErrorIs(t, p.ParseNone(":TICK:", []string{"x"}), ErrArgCount)
}
