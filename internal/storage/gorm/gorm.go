// Package gormstorage implements the storage.Backend interface on GORM with
// internal queues and a background DB writer goroutine. The postgres and
// sqlite backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/turbofuel/fueltwin/internal/database"
	"github.com/turbofuel/fueltwin/internal/model"
	"github.com/turbofuel/fueltwin/internal/model/convert"
	"github.com/turbofuel/fueltwin/internal/queue"
	"github.com/turbofuel/fueltwin/pkg/core"

	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued rows are written.
const DefaultFlushInterval = 2 * time.Second

// ErrNoActiveRun is returned when recording before StartRun.
var ErrNoActiveRun = errors.New("no active run")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	// MaxQueued bounds each write queue while the database is failing; zero is unbounded
	MaxQueued int
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Frames *queue.Queue[model.Frame]
	Events *queue.Queue[model.Event]
}

func newQueues(limit int) *queues {
	return &queues{
		Frames: queue.NewBounded[model.Frame](limit),
		Events: queue.NewBounded[model.Event](limit),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues

	runID    atomic.Uint64
	active   atomic.Bool
	lastStep atomic.Uint64

	flushMu       sync.Mutex
	lastWriteNano atomic.Int64

	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues(b.deps.MaxQueued)
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB != nil {
		b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Dialector.Name())
		if err := database.Migrate(b.deps.DB); err != nil {
			return fmt.Errorf("failed to setup DB: %w", err)
		}
	}

	go b.writerLoop()
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.stopChan == nil {
			return
		}
		close(b.stopChan)
		<-b.done
		err = b.Flush()
	})
	return err
}

// StartRun inserts the run row and directs subsequent records to it.
func (b *Backend) StartRun(run *core.Run) error {
	b.lastStep.Store(0)
	if b.deps.DB == nil {
		b.active.Store(true)
		return nil
	}

	row := convert.CoreToRun(*run)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new run: %w", err)
	}
	b.runID.Store(uint64(row.ID))
	b.active.Store(true)
	b.deps.Logger.Info("Run started", "runId", run.ID.String(), "row", row.ID)
	return nil
}

// EndRun flushes the queues and stamps the run's end time and last step.
func (b *Backend) EndRun() error {
	if !b.active.Swap(false) {
		return nil
	}
	if err := b.Flush(); err != nil {
		return err
	}
	if b.deps.DB == nil {
		return nil
	}

	id := uint(b.runID.Swap(0))
	err := b.deps.DB.Model(&model.Run{}).Where("id = ?", id).Updates(map[string]any{
		"end_time": time.Now().UTC(),
		"end_step": uint(b.lastStep.Load()),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to close run %d: %w", id, err)
	}
	return nil
}

// RecordFrame converts a frame and pushes it to the write queue.
func (b *Backend) RecordFrame(f *core.Frame) error {
	if !b.active.Load() {
		return ErrNoActiveRun
	}
	b.queues.Frames.Push(convert.CoreToFrame(uint(b.runID.Load()), *f))
	if f.Step > b.lastStep.Load() {
		b.lastStep.Store(f.Step)
	}
	return nil
}

// RecordEvent converts a log entry and pushes it to the write queue.
func (b *Backend) RecordEvent(e *core.LogEntry) error {
	if !b.active.Load() {
		return ErrNoActiveRun
	}
	b.queues.Events.Push(convert.CoreToEvent(uint(b.runID.Load()), *e))
	return nil
}

// Flush writes all queued rows now. Without a DB it is a no-op.
func (b *Backend) Flush() error {
	if b.deps.DB == nil || b.queues == nil {
		return nil
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	start := time.Now()
	err := errors.Join(
		writeQueue(b.deps.DB, b.queues.Frames, "frames", b.deps.Logger),
		writeQueue(b.deps.DB, b.queues.Events, "events", b.deps.Logger),
	)
	b.lastWriteNano.Store(int64(time.Since(start)))
	return err
}

// GetLastDBWriteDuration returns how long the last flush took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWriteNano.Load())
}

// QueueLengths returns the number of frames and events waiting to be written.
func (b *Backend) QueueLengths() (frames, events int) {
	if b.queues == nil {
		return 0, 0
	}
	return b.queues.Frames.Len(), b.queues.Events.Len()
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back to the front of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	pending := append([]T(nil), items...)

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log.Error("Error creating rows", "function", ":DB:WRITER:", "table", name, "count", len(items), "error", err)
		q.Requeue(pending...)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// writerLoop periodically drains queues into the DB.
func (b *Backend) writerLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			// errors are logged by writeQueue and the rows retried next round
			_ = b.Flush()
		}
	}
}
