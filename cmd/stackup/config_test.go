package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"STACKUP_MANIFEST_DIR",
		"STACKUP_DATA_DIR",
		"STACKUP_SUMMARY_FILE",
		"STACKUP_DOCKER_HOST",
		"STACKUP_HEALTH_POLL_INTERVAL",
		"STACKUP_HEALTH_SERVICE_TIMEOUT",
		"STACKUP_LOG_LEVEL",
		"STACKUP_LOG_FORMAT",
		"STACKUP_HISTORY_ENABLED",
		"STACKUP_HISTORY_DSN",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "./manifests", cfg.ManifestDir)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "", cfg.Docker.Host)
	assert.Equal(t, 2*time.Second, cfg.Health.PollInterval)
	assert.Equal(t, 90*time.Second, cfg.Health.ServiceTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "./data/stackup.db", cfg.History.DSN)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
manifest_dir: "/etc/stackup/manifests"
data_dir: "/var/lib/stackup"

docker:
  host: "tcp://dockerd:2376"

health:
  poll_interval: 1s
  service_timeout: 30s

log:
  level: "debug"
  format: "json"

history:
  enabled: false
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "/etc/stackup/manifests", cfg.ManifestDir)
	assert.Equal(t, "/var/lib/stackup", cfg.DataDir)
	assert.Equal(t, "tcp://dockerd:2376", cfg.Docker.Host)
	assert.Equal(t, time.Second, cfg.Health.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Health.ServiceTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.History.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STACKUP_MANIFEST_DIR", "/opt/manifests")
	t.Setenv("STACKUP_LOG_LEVEL", "warn")
	t.Setenv("STACKUP_HEALTH_SERVICE_TIMEOUT", "2m")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/opt/manifests", cfg.ManifestDir)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2*time.Minute, cfg.Health.ServiceTimeout)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "./manifests", cfg.ManifestDir)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("::: not yaml :::"), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		cfg := &Config{Log: LogConfig{Level: level, Format: "text"}}
		logger := SetupLogger(cfg)
		assert.NotNil(t, logger, "level %s", level)
	}
}

func TestSetupLogger_JSONFormat(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "info", Format: "json"}}
	assert.NotNil(t, SetupLogger(cfg))
}
