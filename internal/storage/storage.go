// internal/storage/storage.go
package storage

import "github.com/turbofuel/fueltwin/pkg/core"

// Backend is the interface all recorder implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun() error

	// Recording
	RecordFrame(f *core.Frame) error
	RecordEvent(e *core.LogEntry) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the results server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
