package session

import (
	"sync"

	"github.com/turbofuel/fueltwin/pkg/core"
)

// Context holds the run currently being recorded
type Context struct {
	mu  sync.RWMutex
	run *core.Run
}

// NewContext creates a Context with no active run
func NewContext() *Context {
	return &Context{}
}

// GetRun returns the current run, or nil
func (c *Context) GetRun() *core.Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run
}

// SetRun sets the current run; nil clears it
func (c *Context) SetRun(run *core.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = run
}

// RunID returns the current run id as a string, or "" without a run
func (c *Context) RunID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.run == nil {
		return ""
	}
	return c.run.ID.String()
}
