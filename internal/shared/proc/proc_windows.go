//go:build windows

package proc

import (
	"context"
	"os/exec"
)

// Prepare is a no-op on Windows; there are no POSIX process groups
func Prepare(cmd *exec.Cmd) {}

// KillGroup falls back to walking the process tree
func KillGroup(pid int) error {
	if pid <= 0 {
		return nil
	}
	return KillTree(context.Background(), pid)
}
