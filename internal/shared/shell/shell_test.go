package shell

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForExecute(t *testing.T) {
	spec := ForExecute()
	if runtime.GOOS == "windows" {
		assert.Equal(t, Spec{Path: "cmd", Flag: "/C"}, spec)
		return
	}
	assert.Equal(t, "sh", spec.Path)
	assert.Equal(t, []string{"-c", "ls -la"}, spec.Args("ls -la"))
}

func TestExpandTilde(t *testing.T) {
	t.Setenv("HOME", "/home/dev")

	tests := []struct {
		in, want string
	}{
		{"~", "/home/dev"},
		{"~/project", filepath.Join("/home/dev", "project")},
		{"~other/x", "~other/x"},
		{"/tmp", "/tmp"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandTilde(tt.in))
		})
	}
}

func TestEnviron(t *testing.T) {
	base := []string{
		"PATH=/usr/bin",
		"SHELLCORE_TOKEN=secret",
		"__CFBundleIdentifier=x",
		"EMPTY=",
		"malformed",
	}

	env := Environ(base, []string{"SHELLCORE_", "__CF"}, map[string]string{
		"TERM": "xterm-256color",
		"PATH": "/opt/bin",
	})

	assert.Equal(t, []string{"EMPTY=", "PATH=/opt/bin", "TERM=xterm-256color"}, env)
}
