package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellcore/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
	"github.com/GriffinCanCode/shellcore/internal/shared/proc"
	"github.com/GriffinCanCode/shellcore/internal/shared/shell"
	"github.com/GriffinCanCode/shellcore/internal/shared/textenc"
	"github.com/GriffinCanCode/shellcore/internal/shared/utils"
)

// waitDelay bounds how long a killed command's orphans may hold its pipes
const waitDelay = time.Second

// CommandResult is the outcome of a command that ran to completion
type CommandResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	Success    bool   `json:"success"`
	DurationMS int64  `json:"duration_ms"`
	WorkingDir string `json:"working_dir"`
}

// CommandError reports a non-zero exit from ExecuteSimple
type CommandError struct {
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return "command failed: " + e.Stderr
}

// Executor runs guarded commands
type Executor struct {
	defaults Policy
	shell    shell.Spec
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
}

// Option configures an Executor
type Option func(*Executor)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMetrics enables metrics collection
func WithMetrics(m *monitoring.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithTracer records a span per execution
func WithTracer(t *tracing.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// WithShell overrides the platform shell
func WithShell(s shell.Spec) Option {
	return func(e *Executor) { e.shell = s }
}

// New creates an executor whose Defaults apply when callers pass no policy
func New(defaults Policy, opts ...Option) *Executor {
	if defaults.Timeout <= 0 {
		defaults.Timeout = DefaultTimeout
	}
	e := &Executor{
		defaults: defaults,
		shell:    shell.ForExecute(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Defaults returns the executor's default policy
func (e *Executor) Defaults() Policy {
	return e.defaults
}

// Execute screens command, runs it in workingDir and waits for it to exit or
// for the policy timeout. A non-zero exit is a result, not an error.
func (e *Executor) Execute(ctx context.Context, command, workingDir string, policy Policy) (*CommandResult, error) {
	start := time.Now()
	if policy.Timeout <= 0 {
		policy.Timeout = e.defaults.Timeout
	}

	span, ctx := e.tracer.StartSpan(ctx, "executor.execute")
	defer span.End()

	result, err := e.execute(ctx, command, workingDir, policy)
	span.SetError(err)
	e.metrics.RecordExecution(outcome(result, err), time.Since(start))
	return result, err
}

func (e *Executor) execute(ctx context.Context, command, workingDir string, policy Policy) (*CommandResult, error) {
	log := e.logger.With(zap.String("command", command))

	if err := utils.ValidateCommand(command); err != nil {
		return nil, err
	}
	if err := Check(command, policy); err != nil {
		var v *Violation
		if errors.As(err, &v) {
			e.metrics.RecordSafetyViolation(v.Reason)
		}
		log.Warn("command rejected", zap.Error(err))
		return nil, err
	}

	dir, err := resolveDir(workingDir)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.shell.Path, e.shell.Args(command)...)
	proc.Bind(cmd)
	cmd.WaitDelay = waitDelay
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSpawnFailure, err)
	}
	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		log.Warn("command timed out", zap.Duration("timeout", policy.Timeout))
		return nil, fmt.Errorf("%w: command exceeded %s", errs.ErrTimeout, policy.Timeout)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("%w: %v", errs.ErrIOFailure, waitErr)
		}
		// -1 when terminated by a signal
		exitCode = exitErr.ExitCode()
	}

	result := &CommandResult{
		Stdout:     textenc.Decode(stdout.Bytes()),
		Stderr:     textenc.Decode(stderr.Bytes()),
		ExitCode:   exitCode,
		Success:    exitCode == 0,
		DurationMS: elapsed.Milliseconds(),
		WorkingDir: dir,
	}
	log.Debug("command finished",
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", elapsed))
	return result, nil
}

// ExecuteSimple runs command with the default policy and returns stdout
// followed by stderr. An empty workingDir means the process's own.
func (e *Executor) ExecuteSimple(ctx context.Context, command, workingDir string) (string, error) {
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("%w: %v", errs.ErrInvalidWorkingDirectory, err)
		}
		workingDir = wd
	}

	result, err := e.Execute(ctx, command, workingDir, e.defaults)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", &CommandError{ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return result.Stdout + result.Stderr, nil
}

func resolveDir(workingDir string) (string, error) {
	if workingDir == "" {
		return "", fmt.Errorf("%w: working directory is required", errs.ErrInvalidWorkingDirectory)
	}
	dir := shell.ExpandTilde(workingDir)
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", errs.ErrInvalidWorkingDirectory, workingDir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", errs.ErrInvalidWorkingDirectory, workingDir)
	}
	return dir, nil
}

func outcome(result *CommandResult, err error) string {
	switch {
	case errors.Is(err, errs.ErrSafetyViolation):
		return "rejected"
	case errors.Is(err, errs.ErrTimeout):
		return "timeout"
	case err != nil:
		return "error"
	case result.Success:
		return "success"
	default:
		return "failure"
	}
}
