package websocket

import (
	"log/slog"
	"sync"

	"github.com/turbofuel/fueltwin/pkg/core"
	"github.com/turbofuel/fueltwin/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	// SendBuffer is the number of messages queued for the write loop
	SendBuffer int
}

// Backend streams run data over WebSocket to a collector.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config

	mu      sync.Mutex
	runID   string
	endStep uint64
}

// New creates a new WebSocket storage backend.
func New(cfg Config, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		conn: newConnection(log, cfg.SendBuffer),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Connected reports whether the backend currently holds a live connection.
func (b *Backend) Connected() bool {
	return b.conn.connected()
}

// Dropped returns the number of messages discarded because the send buffer was full.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartRun sends the run description and waits for server ack.
func (b *Backend) StartRun(run *core.Run) error {
	data, err := streaming.Marshal(streaming.TypeStartRun, streaming.NewStartRunPayload(run))
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.runID = run.ID.String()
	b.endStep = 0
	b.mu.Unlock()

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartRun = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartRun, ackTimeout)
}

// EndRun sends end_run and waits for server ack.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	payload := streaming.EndRunPayload{RunID: b.runID, EndStep: b.endStep}
	b.runID = ""
	b.mu.Unlock()

	data, err := streaming.Marshal(streaming.TypeEndRun, payload)
	if err == nil {
		err = b.conn.sendAndWait(data, streaming.TypeEndRun, ackTimeout)
	}

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartRun = nil
	b.conn.mu.Unlock()

	return err
}

// RecordFrame streams one tick.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	if f.Step > b.endStep {
		b.endStep = f.Step
	}
	b.mu.Unlock()
	return b.sendEnvelope(streaming.TypeFrame, f)
}

// RecordEvent streams one log entry.
func (b *Backend) RecordEvent(e *core.LogEntry) error {
	return b.sendEnvelope(streaming.TypeLogEntry, e)
}
