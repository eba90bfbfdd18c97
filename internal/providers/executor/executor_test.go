//go:build !windows

package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shellcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
	"github.com/GriffinCanCode/shellcore/internal/shared/shell"
)

func TestExecuteSuccess(t *testing.T) {
	e := New(DefaultPolicy())
	dir := t.TempDir()

	result, err := e.Execute(context.Background(), "ls -la", dir, DefaultPolicy())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, ".")
	assert.Equal(t, dir, result.WorkingDir)
	assert.GreaterOrEqual(t, result.DurationMS, int64(0))
}

func TestExecuteCapturesStreamsAndExitCode(t *testing.T) {
	e := New(DefaultPolicy())

	result, err := e.Execute(context.Background(), "echo out; echo err >&2; exit 7", t.TempDir(), DefaultPolicy())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 7, result.ExitCode)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
}

func TestExecuteRunsInWorkingDirectory(t *testing.T) {
	e := New(DefaultPolicy())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), nil, 0o644))

	result, err := e.Execute(context.Background(), "ls", dir, DefaultPolicy())
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "marker.txt")
}

func TestExecuteExpandsTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.Mkdir(filepath.Join(home, "proj"), 0o755))
	e := New(DefaultPolicy())

	result, err := e.Execute(context.Background(), "true", "~", DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, home, result.WorkingDir)

	result, err = e.Execute(context.Background(), "true", "~/proj", DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "proj"), result.WorkingDir)
}

func TestExecuteInvalidWorkingDirectory(t *testing.T) {
	e := New(DefaultPolicy())
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	for _, dir := range []string{"", "/definitely/not/here", file} {
		_, err := e.Execute(context.Background(), "ls", dir, DefaultPolicy())
		assert.ErrorIs(t, err, errs.ErrInvalidWorkingDirectory, dir)
	}
}

func TestExecuteRejectsBeforeSpawning(t *testing.T) {
	metrics := monitoring.NewMetrics()
	defer metrics.Close()
	e := New(DefaultPolicy(), WithMetrics(metrics))
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")

	_, err := e.Execute(context.Background(), "touch "+marker+"; sudo rm -rf / --force", dir, DefaultPolicy())
	assert.ErrorIs(t, err, errs.ErrSafetyViolation)

	_, err = e.Execute(context.Background(), "sudo touch "+marker, dir, DefaultPolicy())
	assert.ErrorIs(t, err, errs.ErrSafetyViolation)

	assert.NoFileExists(t, marker)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SafetyViolations.WithLabelValues("denylist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SafetyViolations.WithLabelValues("privilege")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Executions.WithLabelValues("rejected")))
}

func TestExecuteTimeout(t *testing.T) {
	e := New(DefaultPolicy())
	policy := DefaultPolicy()
	policy.Timeout = time.Second

	start := time.Now()
	_, err := e.Execute(context.Background(), "sleep 5", t.TempDir(), policy)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, errs.ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 4*time.Second)
}

func TestExecuteTimeoutKillsBackgroundChildren(t *testing.T) {
	e := New(DefaultPolicy())
	policy := DefaultPolicy()
	policy.Timeout = 500 * time.Millisecond

	start := time.Now()
	_, err := e.Execute(context.Background(), "sleep 10 & sleep 10; wait", t.TempDir(), policy)

	assert.ErrorIs(t, err, errs.ErrTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestExecuteParentCancellation(t *testing.T) {
	e := New(DefaultPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	_, err := e.Execute(ctx, "sleep 5", t.TempDir(), DefaultPolicy())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteSpawnFailure(t *testing.T) {
	e := New(DefaultPolicy(), WithShell(shell.Spec{Path: "/nonexistent/sh", Flag: "-c"}))

	_, err := e.Execute(context.Background(), "ls", t.TempDir(), DefaultPolicy())
	assert.ErrorIs(t, err, errs.ErrSpawnFailure)
}

func TestExecuteDecodesInvalidUTF8(t *testing.T) {
	e := New(DefaultPolicy())

	result, err := e.Execute(context.Background(), `printf 'ok\377!'`, t.TempDir(), DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, "ok�!", result.Stdout)
}

func TestExecuteSimple(t *testing.T) {
	e := New(DefaultPolicy())

	out, err := e.ExecuteSimple(context.Background(), "echo out; echo err >&2", "")
	require.NoError(t, err)
	assert.Equal(t, "out\nerr\n", out)

	_, err = e.ExecuteSimple(context.Background(), "echo broken >&2; exit 2", t.TempDir())
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 2, cmdErr.ExitCode)
	assert.Equal(t, "command failed: broken\n", err.Error())
}
