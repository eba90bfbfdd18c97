package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
	"github.com/GriffinCanCode/shellcore/internal/shared/shell"
)

// searchDirs are searched for a requested shell before PATH
var searchDirs = []string{
	"/bin",
	"/usr/bin",
	"/usr/local/bin",
	"/opt/homebrew/bin",
}

// preferredShells are tried in order when no shell is requested
var preferredShells = []string{"zsh", "bash"}

// resolveShell picks the interactive shell binary. An absolute path must
// exist. A bare name is looked up in well-known locations and on PATH; when it
// cannot be found, or nothing was requested, the preferred shells, the
// configured shell, $SHELL and /bin/sh are tried in turn.
func resolveShell(requested, configured string) (string, error) {
	if runtime.GOOS == "windows" {
		path, err := exec.LookPath("powershell.exe")
		if err != nil {
			return "", fmt.Errorf("%w: powershell.exe", errs.ErrShellNotFound)
		}
		return path, nil
	}

	if requested != "" {
		if filepath.IsAbs(requested) {
			if !isExecutable(requested) {
				return "", fmt.Errorf("%w: %s", errs.ErrShellNotFound, requested)
			}
			return requested, nil
		}
		if strings.ContainsRune(requested, filepath.Separator) {
			return "", fmt.Errorf("%w: shell must be a name or an absolute path", errs.ErrInvalidArgument)
		}
		if path, ok := findShell(requested); ok {
			return path, nil
		}
	}

	for _, name := range preferredShells {
		if path, ok := findShell(name); ok {
			return path, nil
		}
	}
	for _, candidate := range []string{configured, os.Getenv("SHELL"), "/bin/sh"} {
		if candidate != "" && isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no usable shell", errs.ErrShellNotFound)
}

func findShell(name string) (string, bool) {
	for _, dir := range searchDirs {
		path := filepath.Join(dir, name)
		if isExecutable(path) {
			return path, true
		}
	}
	if path, err := exec.LookPath(name); err == nil {
		return path, true
	}
	return "", false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
}

// shellFamily classifies a shell path for hook injection
func shellFamily(path string) string {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "zsh"):
		return "zsh"
	case strings.Contains(base, "bash"):
		return "bash"
	default:
		return ""
	}
}

// osc7Hook returns the line that makes a shell report $PWD before each prompt
func osc7Hook(family string) string {
	const fn = `__shellcore_osc7() { printf '\033]7;file://%s%s\007' "${HOST:-$(hostname)}" "$PWD"; }`
	switch family {
	case "zsh":
		return fn + "; precmd_functions+=(__shellcore_osc7)\n"
	case "bash":
		return fn + `; PROMPT_COMMAND="__shellcore_osc7${PROMPT_COMMAND:+;$PROMPT_COMMAND}"` + "\n"
	default:
		return ""
	}
}

// shellArgs returns the arguments that make path an interactive shell
func shellArgs() []string {
	if runtime.GOOS == "windows" {
		return nil
	}
	return []string{"-i"}
}

// localEnv builds the environment of an interactive shell: the caller's
// environment minus excluded prefixes, with a plain prompt and color support.
func localEnv(base, exclude []string) []string {
	overrides := map[string]string{
		"TERM":                            "xterm-256color",
		"COLORTERM":                       "truecolor",
		"PS1":                             "> ",
		"PROMPT":                          "> ",
		"SIMPLE_PROMPT":                   "1",
		"BASH_SILENCE_DEPRECATION_WARNING": "1",
		"ZSH_THEME":                       "",
	}
	return withLang(shell.Environ(base, exclude, overrides))
}

// sshEnv builds the environment of an ssh or expect client
func sshEnv(base, exclude []string) []string {
	overrides := map[string]string{
		"TERM":      "xterm-256color",
		"COLORTERM": "truecolor",
	}
	return withLang(shell.Environ(base, exclude, overrides))
}

func withLang(env []string) []string {
	for _, kv := range env {
		if strings.HasPrefix(kv, "LANG=") {
			return env
		}
	}
	return append(env, "LANG=en_US.UTF-8")
}

// startDir is the directory a new session starts in
func startDir() string {
	if home := shell.HomeDir(); home != "" {
		if info, err := os.Stat(home); err == nil && info.IsDir() {
			return home
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return os.TempDir()
}
