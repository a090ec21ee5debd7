package storage

import (
	"errors"

	"github.com/turbofuel/fueltwin/pkg/core"
)

// Multi forwards every call to each of its backends. All backends see every
// call even when an earlier one fails; the errors are joined.
type Multi struct {
	backends []Backend
}

// NewMulti combines backends. A single backend is returned unwrapped.
func NewMulti(backends ...Backend) Backend {
	if len(backends) == 1 {
		return backends[0]
	}
	return &Multi{backends: backends}
}

// Backends returns the wrapped backends.
func (m *Multi) Backends() []Backend {
	return m.backends
}

func (m *Multi) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range m.backends {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Init() error   { return m.each(Backend.Init) }
func (m *Multi) Close() error  { return m.each(Backend.Close) }
func (m *Multi) EndRun() error { return m.each(Backend.EndRun) }

func (m *Multi) StartRun(run *core.Run) error {
	return m.each(func(b Backend) error { return b.StartRun(run) })
}

func (m *Multi) RecordFrame(f *core.Frame) error {
	return m.each(func(b Backend) error { return b.RecordFrame(f) })
}

func (m *Multi) RecordEvent(e *core.LogEntry) error {
	return m.each(func(b Backend) error { return b.RecordEvent(e) })
}

// Uploadables returns the backends of b that produce uploadable files.
func Uploadables(b Backend) []Uploadable {
	var out []Uploadable
	if m, ok := b.(*Multi); ok {
		for _, inner := range m.backends {
			out = append(out, Uploadables(inner)...)
		}
		return out
	}
	if u, ok := b.(Uploadable); ok {
		out = append(out, u)
	}
	return out
}
