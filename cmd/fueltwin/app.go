package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/turbofuel/fueltwin/internal/api"
	"github.com/turbofuel/fueltwin/internal/config"
	"github.com/turbofuel/fueltwin/internal/dispatcher"
	"github.com/turbofuel/fueltwin/internal/engine"
	"github.com/turbofuel/fueltwin/internal/fault"
	"github.com/turbofuel/fueltwin/internal/logging"
	intOtel "github.com/turbofuel/fueltwin/internal/otel"
	"github.com/turbofuel/fueltwin/internal/parser"
	"github.com/turbofuel/fueltwin/internal/runner"
	"github.com/turbofuel/fueltwin/internal/session"
	"github.com/turbofuel/fueltwin/internal/storage"
	"github.com/turbofuel/fueltwin/internal/worker"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// app holds the services shared by the serve and run commands.
type app struct {
	start   time.Time
	logFile *os.File
	logs    *logging.SlogManager
	logger  *slog.Logger
	zlog    zerolog.Logger
	otel    *intOtel.Provider

	engineCfg  config.EngineConfig
	runner     *runner.Runner
	session    *session.Context
	dispatcher *dispatcher.Dispatcher
	backend    storage.Backend
	manager    *worker.Manager
}

// newApp sets up logging, telemetry, the simulation and the recorder
// backends. The caller must call close.
func newApp() (*app, error) {
	a := &app{
		start:   time.Now(),
		logs:    logging.NewSlogManager(),
		session: session.NewContext(),
	}
	a.setupLogging()

	a.engineCfg = config.GetEngineConfig()
	eng := engine.New(
		engine.WithTickInterval(a.engineCfg.TickInterval),
		engine.WithRandSource(fault.NewSource(a.engineCfg.Seed)),
		engine.WithResetKeepsControls(a.engineCfg.ResetKeepsControls),
	)

	var err error
	a.runner, err = runner.New(eng, a.logger.With("component", "runner"))
	if err != nil {
		a.close(context.Background())
		return nil, fmt.Errorf("creating runner: %w", err)
	}

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(
		a.zlog.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		a.close(context.Background())
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	storageCfg := config.GetStorageConfig()
	a.backend, err = newBackend(storageCfg, a.logger.With("component", "storage"), a.zlog, a.start)
	if err != nil {
		a.close(context.Background())
		return nil, err
	}
	if err := a.backend.Init(); err != nil {
		a.close(context.Background())
		return nil, fmt.Errorf("initializing storage %q: %w", storageCfg.Type, err)
	}
	a.logger.Info("Storage initialized", "types", storageCfg.Types())

	a.manager = worker.NewManager(worker.Dependencies{
		Runner:  a.runner,
		Parser:  parser.NewParser(a.logger.With("component", "parser")),
		Session: a.session,
		Logger:  a.logger.With("component", "worker"),
	}, a.backend)
	a.manager.RegisterHandlers(a.dispatcher)
	a.logger.Debug("Handlers registered", "commands", a.dispatcher.Commands())

	return a, nil
}

func (a *app) setupLogging() {
	level := viper.GetString("logLevel")

	var out io.Writer = os.Stderr
	file, err := logging.OpenLogFile(viper.GetString("logsDir"), appName, a.start)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Logging to stderr:", err)
	} else {
		a.logFile = file
		out = file
	}

	if otelCfg := config.GetOTelConfig(); otelCfg.Enabled {
		a.otel, err = intOtel.New(intOtel.FromConfig(otelCfg, version, out))
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to initialize OTel provider:", err)
			a.otel = nil
		}
	}

	a.logs.Setup(out, level, a.otelLogs())
	a.logs.SetContext(logging.RunContext(a.session.RunID, a.snapshot))

	if viper.GetBool("graylog.enabled") {
		addr := viper.GetString("graylog.address")
		if err := a.logs.AddGELF(addr); err != nil {
			a.logs.Logger().Error("Failed to set up Graylog", "address", addr, "error", err)
		}
	}
	a.logger = a.logs.Logger()
	a.zlog = newZerolog(out, level, a.session)

	if configErr != nil {
		a.logger.Warn("Failed to load config, using defaults", "error", configErr)
	} else {
		a.logger.Info("Loaded config", "file", viper.ConfigFileUsed())
	}
	if a.logFile != nil {
		a.logger.Info("Logging to file", "path", a.logFile.Name(), "otel", a.otel != nil)
	}
}

func (a *app) otelLogs() *sdklog.LoggerProvider {
	if a.otel == nil {
		return nil
	}
	return a.otel.LoggerProvider()
}

// snapshot is the log context source; it is zero until the runner exists.
func (a *app) snapshot() core.SimulationState {
	if a.runner == nil {
		return core.SimulationState{}
	}
	return a.runner.Snapshot()
}

// newZerolog builds the logger used by the influx and database managers
// and the dispatcher. Records carry the current run id.
func newZerolog(out io.Writer, level string, sess *session.Context) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).Level(lvl).With().Timestamp().Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
			if id := sess.RunID(); id != "" {
				e.Str("runId", id)
			}
		}))
}

// newRun describes a recording of the running simulation.
func (a *app) newRun(name, tag string) *core.Run {
	if tag == "" {
		tag = viper.GetString("defaultTag")
	}
	run := core.NewRun(name, time.Now(), a.runner.Engine().TickInterval())
	run.Seed = a.engineCfg.Seed
	run.Tag = tag
	run.AppVersion = version
	return run
}

// upload sends every exported recording to the results server when an API
// key is configured.
func (a *app) upload(ctx context.Context) error {
	key := viper.GetString("api.apiKey")
	uploads := storage.Uploadables(a.backend)
	if key == "" || len(uploads) == 0 {
		return nil
	}

	client := api.New(viper.GetString("api.serverUrl"), key)
	if err := client.Healthcheck(ctx); err != nil {
		return fmt.Errorf("results server unavailable: %w", err)
	}

	var errs []error
	for _, u := range uploads {
		path := u.GetExportedFilePath()
		if path == "" {
			continue
		}
		if err := client.Upload(ctx, path, u.GetExportMetadata()); err != nil {
			errs = append(errs, fmt.Errorf("uploading %s: %w", path, err))
			continue
		}
		a.logger.Info("Uploaded recording", "path", path)
	}
	return errors.Join(errs...)
}

// close releases everything newApp set up, in reverse order.
func (a *app) close(ctx context.Context) {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Failed to close storage", "error", err)
		}
	}
	if err := a.logs.Close(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to flush logs:", err)
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to shut down OTel:", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
