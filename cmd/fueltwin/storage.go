package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/turbofuel/fueltwin/internal/config"
	"github.com/turbofuel/fueltwin/internal/database"
	"github.com/turbofuel/fueltwin/internal/influx"
	"github.com/turbofuel/fueltwin/internal/storage"
	gormstorage "github.com/turbofuel/fueltwin/internal/storage/gorm"
	"github.com/turbofuel/fueltwin/internal/storage/memory"
	pgstorage "github.com/turbofuel/fueltwin/internal/storage/postgres"
	sqlitestorage "github.com/turbofuel/fueltwin/internal/storage/sqlite"
	wsstorage "github.com/turbofuel/fueltwin/internal/storage/websocket"
)

// streamPath is where the results server accepts recorder streams.
const streamPath = "/api/v1/stream"

// newBackend creates one backend per configured storage type, plus the
// InfluxDB recorder when influx.enabled is set.
func newBackend(cfg config.StorageConfig, log *slog.Logger, zlog zerolog.Logger, start time.Time) (storage.Backend, error) {
	types := cfg.Types()
	if len(types) == 0 {
		types = []string{"memory"}
	}

	var backends []storage.Backend
	for _, t := range types {
		b, err := createStorageBackend(t, cfg, log, zlog)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}

	if viper.GetBool("influx.enabled") {
		backup := filepath.Join(viper.GetString("logsDir"),
			fmt.Sprintf("%s.influx.%s.lp.gz", appName, start.Format("20060102_150405")))
		backends = append(backends, influx.NewManager(zlog.With().Str("component", "influx").Logger(), backup))
		log.Info("InfluxDB recorder enabled", "url", influx.ServerURL(), "backup", backup)
	}

	return storage.NewMulti(backends...), nil
}

func createStorageBackend(t string, cfg config.StorageConfig, log *slog.Logger, zlog zerolog.Logger) (storage.Backend, error) {
	switch t {
	case "memory":
		log.Info("Memory storage backend selected", "outputDir", cfg.Memory.OutputDir)
		return memory.New(cfg.Memory), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			OutputDir:    cfg.SQLite.OutputDir,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		log.Info("SQLite storage backend selected", "outputDir", cfg.SQLite.OutputDir)
		return backend, nil

	case "postgres":
		log.Info("Postgres storage backend selected", "dsnHost", viper.GetString("db.host"))
		return pgstorage.New(gormstorage.Dependencies{Logger: log}), nil

	case "auto":
		log.Info("Postgres storage backend with SQLite fallback selected")
		mgr := database.NewManager(zlog.With().Str("component", "database").Logger())
		return pgstorage.NewFallback(mgr, cfg.SQLite.OutputDir, log), nil

	case "websocket":
		wsURL, secret := websocketTarget(cfg.WebSocket)
		log.Info("WebSocket storage backend selected", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: secret,
		}, log), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", t)
	}
}

// websocketTarget falls back to the results server and API key when no
// dedicated stream URL or secret is configured.
func websocketTarget(cfg config.WebSocketConfig) (string, string) {
	wsURL := cfg.URL
	if wsURL == "" {
		wsURL = httpToWS(viper.GetString("api.serverUrl")) + streamPath
	}
	secret := cfg.Secret
	if secret == "" {
		secret = viper.GetString("api.apiKey")
	}
	return wsURL, secret
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
