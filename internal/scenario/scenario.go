// Package scenario loads scripted runs from YAML and plays them through the
// command dispatcher without a wall clock.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/turbofuel/fueltwin/internal/dispatcher"
	"github.com/turbofuel/fueltwin/internal/history"
	"github.com/turbofuel/fueltwin/internal/parser"
	"github.com/turbofuel/fueltwin/internal/worker"
	"github.com/turbofuel/fueltwin/pkg/core"
)

var (
	ErrNoTicks    = errors.New("scenario needs at least one tick")
	ErrStepRange  = errors.New("step outside the scenario")
	ErrEmptyStep  = errors.New("step has no action")
	ErrUnexpected = errors.New("unexpected handler result")
)

// Scenario is a scripted run.
type Scenario struct {
	Name  string `yaml:"name"`
	Ticks int    `yaml:"ticks"`
	Steps []Step `yaml:"steps"`
}

// Step lists the actions applied before tick At.
type Step struct {
	At       int        `yaml:"at"`
	Throttle *float64   `yaml:"throttle,omitempty"`
	Fault    *FaultStep `yaml:"fault,omitempty"`
	Toggle   bool       `yaml:"toggle,omitempty"`
	Reset    bool       `yaml:"reset,omitempty"`
}

// FaultStep configures one channel's fault.
type FaultStep struct {
	Channel   string  `yaml:"channel"`
	Kind      string  `yaml:"kind"`
	Magnitude float64 `yaml:"magnitude"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks tick bounds and every action's arguments.
func (sc *Scenario) Validate() error {
	if sc.Ticks < 1 {
		return ErrNoTicks
	}
	p := parser.NewParser(nil)
	for i, st := range sc.Steps {
		if st.At < 0 || st.At >= sc.Ticks {
			return fmt.Errorf("step %d: %w: at=%d, ticks=%d", i, ErrStepRange, st.At, sc.Ticks)
		}
		events := st.Events()
		if len(events) == 0 {
			return fmt.Errorf("step %d: %w", i, ErrEmptyStep)
		}
		for _, e := range events {
			var err error
			switch e.Command {
			case worker.CommandThrottle:
				_, err = p.ParseThrottle(e.Args)
			case worker.CommandFault:
				_, err = p.ParseFault(e.Args)
			}
			if err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
	}
	return nil
}

// Events converts the step into control commands, in the order reset,
// throttle, fault, toggle.
func (st Step) Events() []dispatcher.Event {
	var out []dispatcher.Event
	if st.Reset {
		out = append(out, dispatcher.Event{Command: worker.CommandReset})
	}
	if st.Throttle != nil {
		out = append(out, dispatcher.Event{
			Command: worker.CommandThrottle,
			Args:    []string{strconv.FormatFloat(*st.Throttle, 'g', -1, 64)},
		})
	}
	if st.Fault != nil {
		out = append(out, dispatcher.Event{
			Command: worker.CommandFault,
			Args: []string{
				st.Fault.Channel,
				st.Fault.Kind,
				strconv.FormatFloat(st.Fault.Magnitude, 'g', -1, 64),
			},
		})
	}
	if st.Toggle {
		out = append(out, dispatcher.Event{Command: worker.CommandToggle})
	}
	return out
}

// Result summarizes a played scenario.
type Result struct {
	Name    string               `json:"name"`
	Ticks   int                  `json:"ticks"`
	Final   core.SimulationState `json:"final"`
	Summary history.Summary      `json:"summary"`
	Alerts  int                  `json:"alerts"`
}

// Play runs the scenario. The simulation is started before tick 0 if it is
// paused. observe, when not nil, receives the snapshot after every tick.
func Play(ctx context.Context, d *dispatcher.Dispatcher, sc *Scenario, observe func(core.SimulationState)) (Result, error) {
	res := Result{Name: sc.Name}

	steps := append([]Step(nil), sc.Steps...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].At < steps[j].At })

	s, err := dispatchState(d, dispatcher.Event{Command: worker.CommandState})
	if err != nil {
		return res, err
	}
	if !s.IsRunning {
		if _, err := dispatchState(d, dispatcher.Event{Command: worker.CommandToggle}); err != nil {
			return res, err
		}
	}

	alerts := map[core.LogEntry]bool{}
	next := 0
	for tick := 0; tick < sc.Ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		for ; next < len(steps) && steps[next].At == tick; next++ {
			for _, e := range steps[next].Events() {
				if _, err := dispatchState(d, e); err != nil {
					return res, fmt.Errorf("tick %d: %w", tick, err)
				}
			}
		}

		s, err = dispatchState(d, dispatcher.Event{Command: worker.CommandTick})
		if err != nil {
			return res, fmt.Errorf("tick %d: %w", tick, err)
		}
		res.Ticks++
		for _, e := range s.Logs {
			if e.Severity == core.SeverityAlert {
				alerts[e] = true
			}
		}
		if observe != nil {
			observe(s)
		}
	}

	res.Final = s
	res.Alerts = len(alerts)
	if res.Summary, err = history.Summarize(s.History); err != nil {
		return res, err
	}
	return res, nil
}

func dispatchState(d *dispatcher.Dispatcher, e dispatcher.Event) (core.SimulationState, error) {
	v, err := d.Dispatch(e)
	if err != nil {
		return core.SimulationState{}, err
	}
	s, ok := v.(core.SimulationState)
	if !ok {
		return core.SimulationState{}, fmt.Errorf("%s: %w: %T", e.Command, ErrUnexpected, v)
	}
	return s, nil
}
