// Package proc terminates child processes together with everything they
// spawned.
//
// Commands run through a shell ("sh -c ...") fork grandchildren; killing only
// the direct child leaves them running and holding the output pipes open.
// Prepare puts a command in its own process group so KillGroup can signal
// the whole group. KillTree walks the process table instead, which also
// reaches jobs an interactive shell moved into their own groups.
package proc

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/shirou/gopsutil/v4/process"
)

// Bind prepares cmd for group termination and makes context cancellation
// kill the whole group rather than only the direct child.
func Bind(cmd *exec.Cmd) {
	Prepare(cmd)
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return KillGroup(cmd.Process.Pid)
	}
}

// KillTree kills pid and all of its descendants, deepest first.
// A pid that has already exited is not an error.
func KillTree(ctx context.Context, pid int) error {
	root, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil
		}
		return fmt.Errorf("lookup process %d: %w", pid, err)
	}

	var errs []error
	for _, p := range descendants(ctx, root) {
		if err := p.KillWithContext(ctx); err != nil && !isGone(ctx, p) {
			errs = append(errs, fmt.Errorf("kill %d: %w", p.Pid, err))
		}
	}
	if err := root.KillWithContext(ctx); err != nil && !isGone(ctx, root) {
		errs = append(errs, fmt.Errorf("kill %d: %w", pid, err))
	}
	return errors.Join(errs...)
}

// descendants returns the process subtree under p in post-order
func descendants(ctx context.Context, p *process.Process) []*process.Process {
	children, err := p.ChildrenWithContext(ctx)
	if err != nil {
		return nil
	}
	var out []*process.Process
	for _, c := range children {
		out = append(out, descendants(ctx, c)...)
		out = append(out, c)
	}
	return out
}

func isGone(ctx context.Context, p *process.Process) bool {
	running, err := p.IsRunningWithContext(ctx)
	return err != nil || !running
}
