package postgres

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/turbofuel/fueltwin/internal/database"
	gormstorage "github.com/turbofuel/fueltwin/internal/storage/gorm"
	"github.com/turbofuel/fueltwin/internal/util"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// Fallback records to Postgres through a database.Manager. When the manager
// fell back to in-memory SQLite, every ended run is dumped to DumpDir.
type Fallback struct {
	*gormstorage.Backend
	mgr     *database.Manager
	log     *slog.Logger
	dumpDir string

	mu  sync.Mutex
	run *core.Run
}

// NewFallback creates a backend on mgr. A manager that is already connected
// is used as is.
func NewFallback(mgr *database.Manager, dumpDir string, log *slog.Logger) *Fallback {
	if log == nil {
		log = slog.Default()
	}
	return &Fallback{mgr: mgr, log: log, dumpDir: dumpDir}
}

// Init connects the manager if needed, migrates, and starts the writer.
func (f *Fallback) Init() error {
	if f.mgr.DB == nil {
		if err := f.mgr.Connect(); err != nil {
			return err
		}
	}
	if err := f.mgr.Setup(); err != nil {
		return err
	}
	f.Backend = gormstorage.New(gormstorage.Dependencies{DB: f.mgr.DB, Logger: f.log})
	return f.Backend.Init()
}

// Local reports whether records go to the SQLite fallback.
func (f *Fallback) Local() bool {
	return f.mgr.ShouldSaveLocal
}

// StartRun records run and remembers it for naming the dump.
func (f *Fallback) StartRun(run *core.Run) error {
	if err := f.Backend.StartRun(run); err != nil {
		return err
	}
	f.mu.Lock()
	f.run = run
	f.mu.Unlock()
	return nil
}

// EndRun closes the run and, on the SQLite fallback, dumps the database.
func (f *Fallback) EndRun() error {
	if err := f.Backend.EndRun(); err != nil {
		return err
	}
	f.mu.Lock()
	run := f.run
	f.run = nil
	f.mu.Unlock()
	if run == nil || !f.mgr.ShouldSaveLocal {
		return nil
	}

	if err := os.MkdirAll(f.dumpDir, 0o755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}
	f.mgr.SqliteFilePath = filepath.Join(f.dumpDir, fmt.Sprintf("%s_%s%s",
		util.SanitizeName(run.Name), run.StartTime.Format("20060102_150405"), database.BackupExt))
	if err := f.mgr.DumpMemoryToDisk(); err != nil {
		return err
	}
	f.log.Info("Saved local fallback database", "path", f.mgr.SqliteFilePath)
	return nil
}

// DumpPath returns the last dump written, empty when none was.
func (f *Fallback) DumpPath() string {
	return f.mgr.SqliteFilePath
}

// Close stops the writer and releases the manager's connection.
func (f *Fallback) Close() error {
	var err error
	if f.Backend != nil {
		err = f.Backend.Close()
	}
	if cerr := f.mgr.Close(); err == nil {
		err = cerr
	}
	return err
}
