// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition; the SQLite-specific concerns are
// creating the in-memory DB and dumping it to disk.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/turbofuel/fueltwin/internal/database"
	gormstorage "github.com/turbofuel/fueltwin/internal/storage/gorm"
	"github.com/turbofuel/fueltwin/internal/util"
	"github.com/turbofuel/fueltwin/pkg/core"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	// OutputDir receives one <run>_<timestamp>.db file per run
	OutputDir string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	dumpPath string
	dumpMu   sync.Mutex

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend on a fresh in-memory database.
func New(cfg Config, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := database.SqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log}),
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.OutputDir != "" {
		if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	if b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	select {
	case <-b.stopChan:
		return nil
	default:
		close(b.stopChan)
	}
	b.wg.Wait()
	return b.Backend.Close()
}

// StartRun records the run and picks the file the run is dumped to.
func (b *Backend) StartRun(run *core.Run) error {
	if err := b.Backend.StartRun(run); err != nil {
		return err
	}
	if b.cfg.OutputDir == "" {
		return nil
	}
	name := fmt.Sprintf("%s_%s%s", util.SanitizeName(run.Name), run.StartTime.UTC().Format("20060102_150405"), database.BackupExt)
	b.mu.Lock()
	b.dumpPath = filepath.Join(b.cfg.OutputDir, name)
	b.mu.Unlock()
	return nil
}

// EndRun closes the run and writes a final dump.
func (b *Backend) EndRun() error {
	if err := b.Backend.EndRun(); err != nil {
		return err
	}
	return b.Dump()
}

// DumpPath returns the file the current or last run is dumped to.
func (b *Backend) DumpPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dumpPath
}

// Dump flushes queued rows and vacuums the database to DumpPath.
func (b *Backend) Dump() error {
	path := b.DumpPath()
	if path == "" {
		return nil
	}
	b.dumpMu.Lock()
	defer b.dumpMu.Unlock()
	if err := b.Flush(); err != nil {
		return err
	}
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, path); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "function", "sqlite:dump", "path", path, "duration", time.Since(start))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "function", "sqlite:dumpLoop", "error", err)
			}
		}
	}
}
