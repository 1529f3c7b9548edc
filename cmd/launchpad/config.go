package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Python  PythonConfig  `mapstructure:"python"`
	Log     LogConfig     `mapstructure:"log"`
	History HistoryConfig `mapstructure:"history"`
	Console ConsoleConfig `mapstructure:"console"`
}

// AppConfig holds the launch target configuration.
type AppConfig struct {
	// Dir is the base directory all relative paths anchor to. Empty means
	// the directory the launcher binary lives in.
	Dir string `mapstructure:"dir"`

	// Entrypoint is the application file handed to the framework CLI.
	Entrypoint string `mapstructure:"entrypoint"`

	// LogFile is the combined output sink, relative to the base directory.
	LogFile string `mapstructure:"log_file"`
}

// ServerConfig holds the listen address forced onto the application.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`

	// ReadinessInterval is how often the readiness prober polls.
	ReadinessInterval time.Duration `mapstructure:"readiness_interval"`

	// ReadinessProbeTimeout is the timeout for a single probe.
	ReadinessProbeTimeout time.Duration `mapstructure:"readiness_probe_timeout"`
}

// PythonConfig holds interpreter and dependency configuration.
type PythonConfig struct {
	// Interpreter overrides system interpreter discovery when set.
	Interpreter string `mapstructure:"interpreter"`

	// Requirements is the dependency manifest filename, relative to the
	// base directory. Its presence, not its content, gates installation.
	Requirements string `mapstructure:"requirements"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HistoryConfig holds launch-history persistence configuration.
type HistoryConfig struct {
	// Enabled determines whether runs are recorded.
	Enabled bool `mapstructure:"enabled"`

	// DSN is the SQLite path. Empty derives <base>/launchpad.db.
	DSN string `mapstructure:"dsn"`

	// Keep bounds how many runs are retained.
	Keep int `mapstructure:"keep"`
}

// ConsoleConfig holds operator console behavior.
type ConsoleConfig struct {
	// Pause determines whether the launcher waits for a keypress before
	// exiting, so a console window does not close over its last message.
	Pause bool `mapstructure:"pause"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("app.dir", "")
	v.SetDefault("app.entrypoint", "app.py")
	v.SetDefault("app.log_file", "server.log")
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.readiness_interval", "2s")
	v.SetDefault("server.readiness_probe_timeout", "5s")
	v.SetDefault("python.interpreter", "")
	v.SetDefault("python.requirements", "requirements.txt")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.keep", 50)
	v.SetDefault("console.pause", true)

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Base Directory Resolution
// =============================================================================

// ResolveBaseDir pins the directory all relative paths anchor to. The
// configured directory wins; otherwise the launcher's own location is
// used, so double-clicking the binary works from anywhere.
func (c *Config) ResolveBaseDir() (string, error) {
	if c.App.Dir != "" {
		return filepath.Abs(c.App.Dir)
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate launcher binary: %w", err)
	}
	return filepath.Dir(exe), nil
}

// HistoryDSN returns the configured history database path, deriving a
// default inside the base directory when unset.
func (c *Config) HistoryDSN(baseDir string) string {
	if c.History.DSN != "" {
		return c.History.DSN
	}
	return filepath.Join(baseDir, "launchpad.db")
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
// Logs go to stderr; stdout is reserved for operator-facing messages.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
