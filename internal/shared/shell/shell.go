// Package shell selects the platform command interpreter and builds child
// process environments.
package shell

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Spec is an interpreter plus the flag that makes it run one command string
type Spec struct {
	Path string
	Flag string
}

// Args returns the argv tail for running command
func (s Spec) Args(command string) []string {
	return []string{s.Flag, command}
}

// ForExecute returns the interpreter for one-shot guarded commands:
// cmd /C on Windows, sh -c elsewhere.
func ForExecute() Spec {
	if runtime.GOOS == "windows" {
		return Spec{Path: "cmd", Flag: "/C"}
	}
	return Spec{Path: "sh", Flag: "-c"}
}

// ForTasks returns the interpreter for background tasks:
// powershell -Command on Windows, sh -c elsewhere.
func ForTasks() Spec {
	if runtime.GOOS == "windows" {
		return Spec{Path: "powershell.exe", Flag: "-Command"}
	}
	return Spec{Path: "sh", Flag: "-c"}
}

// HomeDir returns the user's home directory, consulting HOME then USERPROFILE
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if home := os.Getenv("USERPROFILE"); home != "" {
		return home
	}
	home, _ := os.UserHomeDir()
	return home
}

// ExpandTilde replaces a leading "~" or "~/" with the home directory.
// "~user" forms are returned unchanged.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := HomeDir()
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// Environ overlays overrides onto base (KEY=VALUE entries), dropping any key
// that starts with one of excludePrefixes. Overrides are applied after the
// exclusion so callers can still set an excluded key explicitly. The result
// is sorted for deterministic output.
func Environ(base []string, excludePrefixes []string, overrides map[string]string) []string {
	merged := make(map[string]string, len(base)+len(overrides))
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" || hasAnyPrefix(key, excludePrefixes) {
			continue
		}
		merged[key] = value
	}
	for k, v := range overrides {
		merged[k] = v
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
