package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "fueltwin.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. FUELTWIN_ENGINE_TICKINTERVAL.
const EnvPrefix = "FUELTWIN"

// EngineConfig holds simulation engine settings
type EngineConfig struct {
	TickInterval       time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	ResetKeepsControls bool          `json:"resetKeepsControls" mapstructure:"resetKeepsControls"`
	Seed               uint64        `json:"seed" mapstructure:"seed"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
}

// WebSocketConfig holds streaming backend settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures recorder backends
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// Types returns the configured backend names; storage.type may hold a
// comma-separated list.
func (c StorageConfig) Types() []string {
	var out []string
	for _, t := range strings.Split(c.Type, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Address        string        `json:"address" mapstructure:"address"`
	StreamInterval time.Duration `json:"streamInterval" mapstructure:"streamInterval"`
}

// MonitorConfig holds status monitor settings
type MonitorConfig struct {
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// SetDefaults registers every default value. Load calls it; tests and
// commands that run without a config file may call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("defaultTag", "bench")
	viper.SetDefault("logsDir", "./twinlogs")

	viper.SetDefault("engine.tickInterval", "500ms")
	viper.SetDefault("engine.resetKeepsControls", false)
	viper.SetDefault("engine.seed", 0)

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.streamInterval", "500ms")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.outputDir", "./recordings")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "fueltwin")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "fueltwin")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "fueltwin")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.interval", "1s")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults stay in
// effect when the file cannot be read.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetEngineConfig returns the simulation engine settings.
func GetEngineConfig() EngineConfig {
	return EngineConfig{
		TickInterval:       viper.GetDuration("engine.tickInterval"),
		ResetKeepsControls: viper.GetBool("engine.resetKeepsControls"),
		Seed:               viper.GetUint64("engine.seed"),
	}
}

// GetStorageConfig returns the recorder backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetServerConfig returns the HTTP API settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:        viper.GetString("server.address"),
		StreamInterval: viper.GetDuration("server.streamInterval"),
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval: viper.GetDuration("monitor.interval"),
	}
}
