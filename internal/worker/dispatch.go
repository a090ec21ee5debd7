package worker

import (
	"fmt"

	"github.com/turbofuel/fueltwin/internal/dispatcher"
)

// Control commands.
const (
	CommandTick     = ":TICK:"
	CommandThrottle = ":THROTTLE:"
	CommandFault    = ":FAULT:"
	CommandToggle   = ":TOGGLE:"
	CommandReset    = ":RESET:"
	CommandState    = ":STATE:"
)

// RegisterHandlers registers all control handlers with the dispatcher.
// Every handler is synchronous: an action is applied between ticks and the
// caller receives the resulting snapshot.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CommandTick, m.handleTick, dispatcher.Logged())
	d.Register(CommandThrottle, m.handleThrottle, dispatcher.Logged())
	d.Register(CommandFault, m.handleFault, dispatcher.Logged())
	d.Register(CommandToggle, m.handleToggle, dispatcher.Logged())
	d.Register(CommandReset, m.handleReset, dispatcher.Logged())
	d.Register(CommandState, m.handleState)
}

func (m *Manager) handleTick(e dispatcher.Event) (any, error) {
	if err := m.deps.Parser.ParseNone(e.Command, e.Args); err != nil {
		return nil, err
	}
	return m.deps.Runner.Tick(), nil
}

func (m *Manager) handleThrottle(e dispatcher.Event) (any, error) {
	percent, err := m.deps.Parser.ParseThrottle(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to set throttle: %w", err)
	}
	return m.deps.Runner.SetThrottle(percent), nil
}

func (m *Manager) handleFault(e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseFault(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to set fault: %w", err)
	}
	m.deps.Logger.Info("Fault configured",
		"channel", cmd.Channel.String(),
		"kind", cmd.Kind.String(),
		"magnitude", cmd.Magnitude)
	return m.deps.Runner.SetFault(cmd.Channel, cmd.Kind, cmd.Magnitude), nil
}

func (m *Manager) handleToggle(e dispatcher.Event) (any, error) {
	if err := m.deps.Parser.ParseNone(e.Command, e.Args); err != nil {
		return nil, err
	}
	s := m.deps.Runner.Toggle()
	m.deps.Logger.Info("Simulation toggled", "running", s.IsRunning, "step", s.Step)
	return s, nil
}

func (m *Manager) handleReset(e dispatcher.Event) (any, error) {
	if err := m.deps.Parser.ParseNone(e.Command, e.Args); err != nil {
		return nil, err
	}
	s := m.deps.Runner.Reset()
	m.deps.Logger.Info("Simulation reset", "running", s.IsRunning)
	return s, nil
}

func (m *Manager) handleState(e dispatcher.Event) (any, error) {
	return m.deps.Runner.Snapshot(), nil
}
