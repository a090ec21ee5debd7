// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/turbofuel/fueltwin/internal/config"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// Backend keeps a run in memory and exports it to JSON when the run ends
type Backend struct {
	cfg config.MemoryConfig
	run *core.Run

	frames []core.Frame
	events []core.LogEntry

	lastExportPath string
	lastExportMeta core.UploadMetadata

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run, discarding anything held before
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.frames = nil
	b.events = nil
	return nil
}

// EndRun exports the run. Without an active run it does nothing.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return nil
	}
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.run = nil
	return nil
}

// RecordFrame appends a tick record
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, *f)
	return nil
}

// RecordEvent appends a log entry
func (b *Backend) RecordEvent(e *core.LogEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, *e)
	return nil
}

// Frames returns a copy of the recorded frames
func (b *Backend) Frames() []core.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Frame(nil), b.frames...)
}

// Events returns a copy of the recorded log entries
func (b *Backend) Events() []core.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.LogEntry(nil), b.events...)
}

// GetExportedFilePath returns the path of the last export
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export for upload
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
