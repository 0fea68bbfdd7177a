package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	// ManifestDir is the directory holding per-phase compose manifests.
	ManifestDir string `mapstructure:"manifest_dir"`

	// DataDir is the directory for persistent state; its filesystem is
	// checked for free space during validation.
	DataDir string `mapstructure:"data_dir"`

	// SummaryFile, when set, receives the run summary as YAML.
	SummaryFile string `mapstructure:"summary_file"`

	Docker  DockerConfig  `mapstructure:"docker"`
	Health  HealthConfig  `mapstructure:"health"`
	Log     LogConfig     `mapstructure:"log"`
	History HistoryConfig `mapstructure:"history"`
	Secrets SecretsConfig `mapstructure:"secrets"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// HealthConfig holds health gate polling configuration.
type HealthConfig struct {
	// PollInterval is the delay between readiness probes of one service.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// ServiceTimeout is the per-service readiness deadline.
	ServiceTimeout time.Duration `mapstructure:"service_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HistoryConfig holds run history persistence configuration.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// SecretsConfig holds secrets generation configuration.
type SecretsConfig struct {
	// EnvFile receives generated secrets for reuse on later runs.
	EnvFile string `mapstructure:"env_file"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("manifest_dir", "./manifests")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("summary_file", "")
	v.SetDefault("docker.host", "")
	v.SetDefault("health.poll_interval", "2s")
	v.SetDefault("health.service_timeout", "90s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dsn", "./data/stackup.db")
	v.SetDefault("secrets.env_file", "./.stackup.env")

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
	v.SetEnvPrefix("STACKUP")
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
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
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
