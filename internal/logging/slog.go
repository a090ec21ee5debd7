package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InstrumentationName identifies this module's logs in the OTel pipeline.
const InstrumentationName = "fueltwin"

// swapped by tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel and GELF outputs.
type SlogManager struct {
	mu       sync.Mutex
	logger   *slog.Logger
	handlers []slog.Handler
	opts     *slog.HandlerOptions
	context  ContextProvider

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
	gelfWriter  *gelf.Writer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. Records go to file, or to stdout
// when file is nil, and to the OTel provider when it is non-nil.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	m.mu.Lock()
	m.logProvider = provider

	// Common handler options with RFC3339 time formatting
	m.opts = &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	out := file
	if out == nil {
		out = osStdout
	}
	m.handlers = []slog.Handler{slog.NewTextHandler(out, m.opts)}

	if provider != nil {
		m.handlers = append(m.handlers, otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(provider)))
	}
	m.rebuild()
	logger := m.logger
	m.mu.Unlock()

	logger.Info("Logging initialized", "level", level)
}

// AddGELF ships records as GELF messages to a Graylog input at addr (host:port, UDP).
func (m *SlogManager) AddGELF(addr string) error {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return fmt.Errorf("gelf writer: %w", err)
	}
	w.Facility = InstrumentationName

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opts == nil {
		m.opts = &slog.HandlerOptions{}
	}
	m.gelfWriter = w
	m.handlers = append(m.handlers, slog.NewJSONHandler(w, m.opts))
	m.rebuild()
	return nil
}

// SetContext injects the attributes returned by provider into every record.
func (m *SlogManager) SetContext(provider ContextProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.context = provider
	if m.handlers != nil {
		m.rebuild()
	}
}

// rebuild recreates the logger from the handler list. Callers hold mu.
func (m *SlogManager) rebuild() {
	var h slog.Handler = NewMultiHandler(m.handlers...)
	if m.context != nil {
		h = NewContextHandler(h, m.context)
	}
	m.logger = slog.New(h)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	m.mu.Lock()
	provider := m.logProvider
	m.mu.Unlock()
	if provider != nil {
		return provider.ForceFlush(ctx)
	}
	return nil
}

// Close flushes and releases the GELF connection.
func (m *SlogManager) Close(ctx context.Context) error {
	err := m.Flush(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gelfWriter != nil {
		if cerr := m.gelfWriter.Close(); err == nil {
			err = cerr
		}
		m.gelfWriter = nil
	}
	return err
}
