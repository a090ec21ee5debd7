// Package parser converts raw command arguments into typed control inputs.
// Unlike the engine, which normalizes anything it is given, the parser fails
// fast so malformed input is reported to the caller.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/turbofuel/fueltwin/internal/util"
	"github.com/turbofuel/fueltwin/pkg/core"
)

var (
	ErrArgCount         = errors.New("wrong number of arguments")
	ErrUnknownChannel   = errors.New("unknown channel")
	ErrUnknownFaultKind = errors.New("unknown fault kind")
	ErrNotFinite        = errors.New("value is not a finite number")
)

// FaultCommand is a parsed :FAULT: request.
type FaultCommand struct {
	Channel   core.Channel
	Kind      core.FaultKind
	Magnitude float64
}

// Parser provides pure []string -> command conversion.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser that logs at debug level.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseFloat parses a finite number. SQF-style quoting is tolerated.
func ParseFloat(s string) (float64, error) {
	s = util.CleanArg(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parsing %q: %w", s, ErrNotFinite)
	}
	return v, nil
}

// ParseChannel resolves a channel name.
func ParseChannel(s string) (core.Channel, error) {
	s = util.CleanArg(s)
	c, ok := core.ParseChannel(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
	return c, nil
}

// ParseFaultKind resolves a fault kind by short name or dashboard label.
func ParseFaultKind(s string) (core.FaultKind, error) {
	s = util.CleanArg(s)
	k, ok := core.ParseFaultKind(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFaultKind, s)
	}
	return k, nil
}

// ParseThrottle parses [percent]. Range clamping is left to the engine.
func (p *Parser) ParseThrottle(args []string) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("throttle: %w: want 1, got %d", ErrArgCount, len(args))
	}
	v, err := ParseFloat(args[0])
	if err != nil {
		return 0, fmt.Errorf("throttle: %w", err)
	}
	p.logger.Debug("Parsed throttle", "percent", v)
	return v, nil
}

// ParseFault parses [channel, kind] or [channel, kind, magnitude]. A missing
// magnitude is 0, which is what None needs.
func (p *Parser) ParseFault(args []string) (FaultCommand, error) {
	var cmd FaultCommand
	if len(args) < 2 || len(args) > 3 {
		return cmd, fmt.Errorf("fault: %w: want 2 or 3, got %d", ErrArgCount, len(args))
	}

	var err error
	if cmd.Channel, err = ParseChannel(args[0]); err != nil {
		return cmd, fmt.Errorf("fault: %w", err)
	}
	if cmd.Kind, err = ParseFaultKind(args[1]); err != nil {
		return cmd, fmt.Errorf("fault: %w", err)
	}
	if len(args) == 3 {
		if cmd.Magnitude, err = ParseFloat(args[2]); err != nil {
			return cmd, fmt.Errorf("fault magnitude: %w", err)
		}
	}

	p.logger.Debug("Parsed fault",
		"channel", cmd.Channel.String(),
		"kind", cmd.Kind.String(),
		"magnitude", cmd.Magnitude)
	return cmd, nil
}

// ParseNone checks that a command carries no arguments.
func (p *Parser) ParseNone(command string, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%s: %w: want 0, got %d", command, ErrArgCount, len(args))
	}
	return nil
}
