// Package config loads runtime configuration from the environment.
//
// An optional .env file (ENV_FILE overrides the path) is loaded first; real
// environment variables always take precedence over it.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Scheduler SchedulerConfig
	Executor  ExecutorConfig
	Terminal  TerminalConfig
	Events    EventsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// CORSConfig holds the browser origins allowed to call the API and open
// /stream. Entries may hold one "*" wildcard; a lone "*" allows every origin.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost,http://localhost:*,http://127.0.0.1,http://127.0.0.1:*,http://[::1],http://[::1]:*,tauri://localhost,http://tauri.localhost,https://tauri.localhost"`
}

// LocalOrigins are loopback and desktop app origins
var LocalOrigins = []string{
	"http://localhost",
	"http://localhost:*",
	"http://127.0.0.1",
	"http://127.0.0.1:*",
	"http://[::1]",
	"http://[::1]:*",
	"tauri://localhost",
	"http://tauri.localhost",
	"https://tauri.localhost",
}

// SchedulerConfig bounds background task execution.
type SchedulerConfig struct {
	MaxConcurrent  int           `envconfig:"SCHEDULER_MAX_CONCURRENT" default:"10"`
	MaxOutputLines int           `envconfig:"SCHEDULER_MAX_OUTPUT_LINES" default:"10000"`
	FlushInterval  time.Duration `envconfig:"SCHEDULER_FLUSH_INTERVAL" default:"100ms"`
}

// ExecutorConfig holds the default policy for guarded commands.
type ExecutorConfig struct {
	Timeout         time.Duration `envconfig:"EXECUTOR_TIMEOUT" default:"300s"`
	SafetyCheck     bool          `envconfig:"EXECUTOR_SAFETY_CHECK" default:"true"`
	AllowPrivileged bool          `envconfig:"EXECUTOR_ALLOW_PRIVILEGED" default:"false"`
}

// TerminalConfig holds PTY session settings.
type TerminalConfig struct {
	Shell        string        `envconfig:"TERMINAL_SHELL"`
	ScriptDir    string        `envconfig:"TERMINAL_SCRIPT_DIR"`
	StartupDelay time.Duration `envconfig:"TERMINAL_STARTUP_DELAY" default:"300ms"`
	ClearOnStart bool          `envconfig:"TERMINAL_CLEAR_ON_START" default:"true"`
	EnvExclude   []string      `envconfig:"TERMINAL_ENV_EXCLUDE" default:"SHELLCORE_,__CF"`
}

// EventsConfig sizes per-subscriber event queues.
type EventsConfig struct {
	Buffer int `envconfig:"EVENTS_BUFFER" default:"256"`
}

// Load loads configuration from the .env file and environment variables.
func Load() (*Config, error) {
	if path := envFile(); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.applyDerived()
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		CORS: CORSConfig{
			AllowedOrigins: append([]string(nil), LocalOrigins...),
		},
		Scheduler: SchedulerConfig{
			MaxConcurrent:  10,
			MaxOutputLines: 10000,
			FlushInterval:  100 * time.Millisecond,
		},
		Executor: ExecutorConfig{
			Timeout:         300 * time.Second,
			SafetyCheck:     true,
			AllowPrivileged: false,
		},
		Terminal: TerminalConfig{
			StartupDelay: 300 * time.Millisecond,
			ClearOnStart: true,
			EnvExclude:   []string{"SHELLCORE_", "__CF"},
		},
		Events: EventsConfig{
			Buffer: 256,
		},
	}
	cfg.applyDerived()
	return cfg
}

func (c *Config) applyDerived() {
	if c.Terminal.ScriptDir == "" {
		c.Terminal.ScriptDir = os.TempDir()
	}
}

// envFile returns the .env path to load, or "" when there is none
func envFile() string {
	if path := os.Getenv("ENV_FILE"); path != "" {
		return path
	}
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}
