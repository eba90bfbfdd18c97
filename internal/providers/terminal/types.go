package terminal

import (
	"time"
)

const (
	DefaultCols = 80
	DefaultRows = 24

	DefaultStartupDelay = 300 * time.Millisecond
)

// Kind distinguishes local shells from ssh sessions
type Kind string

const (
	KindLocal Kind = "local"
	KindSSH   Kind = "ssh"
)

// Config tunes a Manager
type Config struct {
	// Shell is consulted after probing well-known install locations
	Shell string
	// ScriptDir receives per-session expect scripts
	ScriptDir string
	// StartupDelay is how long a new local shell gets before the screen is cleared
	StartupDelay time.Duration
	ClearOnStart bool
	// EnvExclude drops inherited variables with these prefixes
	EnvExclude []string
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{
		StartupDelay: DefaultStartupDelay,
		ClearOnStart: true,
		EnvExclude:   []string{"SHELLCORE_", "__CF"},
	}
}

// SessionInfo is the public representation of a session
type SessionInfo struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Shell      string    `json:"shell"`
	Cols       uint16    `json:"cols"`
	Rows       uint16    `json:"rows"`
	StartedAt  time.Time `json:"started_at"`
	CurrentDir string    `json:"current_dir"`
	Active     bool      `json:"active"`
}

// SSHOptions identifies a remote login
type SSHOptions struct {
	Host     string
	Port     uint16
	Username string
	// Password, when set, is typed at the remote prompt by an expect script
	Password string
}
