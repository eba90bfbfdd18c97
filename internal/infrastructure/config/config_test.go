package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.Equal(t, 10, cfg.Scheduler.MaxConcurrent)
	assert.Equal(t, 10000, cfg.Scheduler.MaxOutputLines)
	assert.Equal(t, 100*time.Millisecond, cfg.Scheduler.FlushInterval)

	assert.Equal(t, 300*time.Second, cfg.Executor.Timeout)
	assert.True(t, cfg.Executor.SafetyCheck)
	assert.False(t, cfg.Executor.AllowPrivileged)

	assert.Equal(t, LocalOrigins, cfg.CORS.AllowedOrigins)
	assert.NotContains(t, cfg.CORS.AllowedOrigins, "*")

	assert.Equal(t, os.TempDir(), cfg.Terminal.ScriptDir)
	assert.Equal(t, []string{"SHELLCORE_", "__CF"}, cfg.Terminal.EnvExclude)
}

func TestLoadMatchesDefault(t *testing.T) {
	t.Setenv("ENV_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                      "9000",
		"HOST":                      "0.0.0.0",
		"LOG_LEVEL":                 "debug",
		"LOG_DEV":                   "true",
		"RATE_LIMIT_ENABLED":        "false",
		"CORS_ALLOWED_ORIGINS":      "http://localhost:1420,tauri://localhost",
		"SCHEDULER_MAX_CONCURRENT":  "4",
		"SCHEDULER_FLUSH_INTERVAL":  "250ms",
		"EXECUTOR_TIMEOUT":          "30s",
		"EXECUTOR_ALLOW_PRIVILEGED": "true",
		"TERMINAL_SHELL":            "/bin/bash",
		"TERMINAL_SCRIPT_DIR":       "/var/tmp",
		"TERMINAL_CLEAR_ON_START":   "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"http://localhost:1420", "tauri://localhost"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 4, cfg.Scheduler.MaxConcurrent)
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduler.FlushInterval)
	assert.Equal(t, 30*time.Second, cfg.Executor.Timeout)
	assert.True(t, cfg.Executor.AllowPrivileged)
	assert.Equal(t, "/bin/bash", cfg.Terminal.Shell)
	assert.Equal(t, "/var/tmp", cfg.Terminal.ScriptDir)
	assert.False(t, cfg.Terminal.ClearOnStart)

	// untouched values keep their defaults
	assert.Equal(t, 10000, cfg.Scheduler.MaxOutputLines)
	assert.True(t, cfg.Executor.SafetyCheck)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SCHEDULER_MAX_OUTPUT_LINES=500\nLOG_LEVEL=warn\n"), 0o600))

	t.Setenv("ENV_FILE", path)
	t.Setenv("LOG_LEVEL", "error")
	// godotenv sets variables that were absent; make sure this one is restored
	t.Setenv("SCHEDULER_MAX_OUTPUT_LINES", "")
	require.NoError(t, os.Unsetenv("SCHEDULER_MAX_OUTPUT_LINES"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Scheduler.MaxOutputLines)
	// the real environment wins over the file
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadMissingEnvFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, "8000", cfg.Server.Port)
}

func TestInvalidValue(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("SCHEDULER_FLUSH_INTERVAL", "soon")

	_, err := Load()
	assert.Error(t, err)
}
