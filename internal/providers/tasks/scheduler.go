package tasks

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/GriffinCanCode/shellcore/internal/events"
	"github.com/GriffinCanCode/shellcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellcore/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
	"github.com/GriffinCanCode/shellcore/internal/shared/proc"
	"github.com/GriffinCanCode/shellcore/internal/shared/shell"
	"github.com/GriffinCanCode/shellcore/internal/shared/textenc"
	"github.com/GriffinCanCode/shellcore/internal/shared/utils"
)

const (
	DefaultMaxConcurrent = 10
	DefaultFlushInterval = 100 * time.Millisecond

	// maxLineBytes splits pathological output without newlines
	maxLineBytes = 64 * 1024
	// waitDelay bounds how long Wait lingers on pipes held by orphans
	waitDelay = 2 * time.Second
)

// Config tunes a Scheduler
type Config struct {
	MaxConcurrent  int
	MaxOutputLines int
	FlushInterval  time.Duration
	Shell          shell.Spec
	// EnvExclude drops inherited variables with these prefixes
	EnvExclude []string
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:  DefaultMaxConcurrent,
		MaxOutputLines: DefaultMaxLines,
		FlushInterval:  DefaultFlushInterval,
		Shell:          shell.ForTasks(),
	}
}

// Scheduler owns the task registry and runs tasks in the background.
// It is safe for concurrent use.
type Scheduler struct {
	cfg     Config
	gate    *semaphore.Weighted
	emitter events.Emitter
	logger  *zap.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	mu    sync.Mutex
	tasks map[string]*entry

	statsMu sync.Mutex
	active  int
	peak    int

	wg sync.WaitGroup
}

type entry struct {
	task Task
	run  *execution
	gen  uint64
}

// execution is one in-flight run of a task
type execution struct {
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stdout  *OutputBuffer
	stderr  *OutputBuffer
	started time.Time
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics enables metrics collection
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithTracer records a span per run
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

// NewScheduler creates a scheduler publishing to emitter
func NewScheduler(cfg Config, emitter events.Emitter, opts ...Option) *Scheduler {
	def := DefaultConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.MaxOutputLines <= 0 {
		cfg.MaxOutputLines = def.MaxOutputLines
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.Shell.Path == "" {
		cfg.Shell = def.Shell
	}
	if emitter == nil {
		emitter = events.Discard
	}

	s := &Scheduler{
		cfg:     cfg,
		gate:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		emitter: emitter,
		logger:  zap.NewNop(),
		tasks:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Create registers a pending task
func (s *Scheduler) Create(id, name, command string, env map[string]string) (Task, error) {
	if err := utils.ValidateID(id, "id"); err != nil {
		return Task{}, err
	}
	if err := utils.ValidateCommand(command); err != nil {
		return Task{}, err
	}
	if name == "" {
		name = id
	}
	if env == nil {
		env = map[string]string{}
	}

	task := Task{
		ID:      id,
		Name:    name,
		Command: command,
		Status:  StatusPending,
		EnvVars: env,
	}

	s.mu.Lock()
	if _, exists := s.tasks[id]; exists {
		s.mu.Unlock()
		return Task{}, fmt.Errorf("%w: task %q", errs.ErrDuplicateID, id)
	}
	s.tasks[id] = &entry{task: task.clone()}
	s.mu.Unlock()

	s.logger.Debug("task created", zap.String("task_id", id), zap.String("name", name))
	s.emitter.Emit(events.TopicTaskUpdated, task.clone())
	return task, nil
}

// Run starts the task in the background and returns immediately.
// Completion is reported through task-updated events.
func (s *Scheduler) Run(ctx context.Context, id string) error {
	_, err := s.start(ctx, id, false)
	return err
}

// RunAll runs every registered task and waits until all of them finish.
// Tasks that are already running are waited on rather than restarted.
func (s *Scheduler) RunAll(ctx context.Context) error {
	ids := s.ids()

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			done, err := s.start(ctx, id, true)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					// cleared while fanning out
					return nil
				}
				return err
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}

// Wait blocks until the task's current run finishes and returns its snapshot
func (s *Scheduler) Wait(ctx context.Context, id string) (Task, error) {
	s.mu.Lock()
	e, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return Task{}, fmt.Errorf("%w: task %q", errs.ErrNotFound, id)
	}
	var done chan struct{}
	if e.run != nil {
		done = e.run.done
	}
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return Task{}, ctx.Err()
		}
	}
	return s.Get(id)
}

// Get returns a snapshot of one task
func (s *Scheduler) Get(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: task %q", errs.ErrNotFound, id)
	}
	return e.task.clone(), nil
}

// List returns snapshots of every task, ordered by id
func (s *Scheduler) List() []Task {
	s.mu.Lock()
	out := make([]Task, 0, len(s.tasks))
	for _, e := range s.tasks {
		out = append(out, e.task.clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Cancel aborts a pending or running task. Cancelling a task that already
// finished leaves it unchanged.
func (s *Scheduler) Cancel(id string) (Task, error) {
	s.mu.Lock()
	e, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return Task{}, fmt.Errorf("%w: task %q", errs.ErrNotFound, id)
	}
	if !CanTransition(e.task.Status, StatusCancelled) {
		snapshot := e.task.clone()
		s.mu.Unlock()
		return snapshot, nil
	}

	e.task.Status = StatusCancelled
	e.task.EndTime = unixNow()
	x := e.run
	e.run = nil
	if x != nil {
		e.task.Output = x.stdout.String()
		e.task.Error = x.stderr.String()
		x.cancel()
	}
	snapshot := e.task.clone()
	s.mu.Unlock()

	if x != nil {
		s.metrics.RecordTaskFinished(string(StatusCancelled), time.Since(x.started))
	}
	s.logger.Info("task cancelled", zap.String("task_id", id))
	s.emitter.Emit(events.TopicTaskUpdated, snapshot)
	return snapshot, nil
}

// Clear removes every task and aborts their executions. It returns the
// number of tasks removed.
func (s *Scheduler) Clear() int {
	s.mu.Lock()
	removed := len(s.tasks)
	for _, e := range s.tasks {
		if e.run != nil {
			e.run.cancel()
		}
	}
	s.tasks = make(map[string]*entry)
	s.mu.Unlock()

	s.logger.Info("tasks cleared", zap.Int("count", removed))
	return removed
}

// Stats summarizes task states and gate usage
func (s *Scheduler) Stats() Stats {
	st := Stats{Capacity: s.cfg.MaxConcurrent}

	s.mu.Lock()
	for _, e := range s.tasks {
		st.Total++
		switch e.task.Status {
		case StatusPending:
			st.Pending++
		case StatusRunning:
			st.Running++
		case StatusSuccess:
			st.Success++
		case StatusFailed:
			st.Failed++
		case StatusCancelled:
			st.Cancelled++
		}
	}
	s.mu.Unlock()

	s.statsMu.Lock()
	st.Active, st.Peak = s.active, s.peak
	s.statsMu.Unlock()
	return st
}

// Shutdown aborts all executions and waits for them to exit
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, e := range s.tasks {
		if e.run != nil {
			e.run.cancel()
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	return ids
}

// start transitions the task to running and launches its execution. With
// join set, a task that is already running yields its current run instead
// of ErrAlreadyRunning.
func (s *Scheduler) start(ctx context.Context, id string, join bool) (<-chan struct{}, error) {
	s.mu.Lock()
	e, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: task %q", errs.ErrNotFound, id)
	}
	if e.task.Status == StatusRunning {
		var done chan struct{}
		if e.run != nil {
			done = e.run.done
		}
		s.mu.Unlock()
		if join && done != nil {
			return done, nil
		}
		return nil, fmt.Errorf("%w: task %q", errs.ErrAlreadyRunning, id)
	}

	// the run's lifetime is independent of the caller's request
	runCtx, cancel := context.WithCancel(context.Background())
	e.gen++
	x := &execution{
		gen:     e.gen,
		ctx:     runCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stdout:  NewOutputBuffer(s.cfg.MaxOutputLines),
		stderr:  NewOutputBuffer(s.cfg.MaxOutputLines),
		started: time.Now(),
	}
	e.run = x
	e.task.Status = StatusRunning
	e.task.StartTime = unixNow()
	e.task.EndTime = nil
	e.task.Output = ""
	e.task.Error = ""
	snapshot := e.task.clone()
	s.mu.Unlock()

	s.emitter.Emit(events.TopicTaskUpdated, snapshot)

	span, _ := s.tracer.StartSpan(ctx, "tasks.run")
	span.SetTag("task_id", id)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(x.done)
		defer span.End()
		if err := s.execute(x, snapshot); err != nil {
			span.SetError(err)
		}
	}()

	return x.done, nil
}

// execute runs one execution to completion and records its outcome
func (s *Scheduler) execute(x *execution, task Task) error {
	if err := s.gate.Acquire(x.ctx, 1); err != nil {
		// cancelled while queued; Cancel already recorded the outcome
		return nil
	}
	defer s.gate.Release(1)
	s.trackActive(1)
	defer s.trackActive(-1)

	log := s.logger.With(zap.String("task_id", task.ID))
	log.Info("task started", zap.String("command", task.Command))

	cmd := exec.CommandContext(x.ctx, s.cfg.Shell.Path, s.cfg.Shell.Args(task.Command)...)
	proc.Bind(cmd)
	cmd.WaitDelay = waitDelay
	cmd.Env = shell.Environ(os.Environ(), s.cfg.EnvExclude, task.EnvVars)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.fail(x, task.ID, fmt.Errorf("%w: %v", errs.ErrIOFailure, err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.fail(x, task.ID, fmt.Errorf("%w: %v", errs.ErrIOFailure, err))
	}
	if err := cmd.Start(); err != nil {
		return s.fail(x, task.ID, fmt.Errorf("%w: %v", errs.ErrSpawnFailure, err))
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		s.pump(x, task.ID, stdout, x.stdout, events.TopicTaskOutput, "stdout")
	}()
	go func() {
		defer readers.Done()
		s.pump(x, task.ID, stderr, x.stderr, events.TopicTaskError, "stderr")
	}()
	readers.Wait()

	waitErr := cmd.Wait()
	if x.ctx.Err() != nil {
		log.Debug("task execution aborted")
		return nil
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		s.finish(x, task.ID, StatusSuccess, "")
		log.Info("task succeeded", zap.Duration("duration", time.Since(x.started)))
		return nil
	case errors.As(waitErr, &exitErr):
		s.finish(x, task.ID, StatusFailed, "")
		log.Info("task failed", zap.Int("exit_code", exitErr.ExitCode()))
		return waitErr
	default:
		return s.fail(x, task.ID, fmt.Errorf("%w: %v", errs.ErrIOFailure, waitErr))
	}
}

func (s *Scheduler) fail(x *execution, id string, err error) error {
	s.logger.Warn("task execution error", zap.String("task_id", id), zap.Error(err))
	s.finish(x, id, StatusFailed, "Error: "+err.Error())
	return err
}

// finish records the outcome unless the run was cancelled, cleared or
// superseded in the meantime
func (s *Scheduler) finish(x *execution, id string, status Status, extraErr string) {
	s.mu.Lock()
	e, ok := s.tasks[id]
	if !ok || e.run != x || !CanTransition(e.task.Status, status) {
		s.mu.Unlock()
		return
	}
	e.run = nil
	e.task.Status = status
	e.task.EndTime = unixNow()
	e.task.Output = x.stdout.String()
	e.task.Error = x.stderr.String()
	if extraErr != "" {
		if e.task.Error != "" {
			e.task.Error += "\n"
		}
		e.task.Error += extraErr
	}
	snapshot := e.task.clone()
	s.mu.Unlock()

	x.cancel()
	s.metrics.RecordTaskFinished(string(status), time.Since(x.started))
	s.emitter.Emit(events.TopicTaskUpdated, snapshot)
}

// pump copies lines from r into buf and emits them in batches every flush
// interval and once more at EOF. It returns as soon as the run is aborted.
func (s *Scheduler) pump(x *execution, id string, r io.Reader, buf *OutputBuffer, topic, stream string) {
	lines := make(chan string, 256)
	go func() {
		defer close(lines)
		reader := bufio.NewReaderSize(r, maxLineBytes)
		for {
			chunk, err := reader.ReadSlice('\n')
			if len(chunk) > 0 {
				select {
				case lines <- textenc.Decode(trimEOL(chunk)):
				case <-x.ctx.Done():
					return
				}
			}
			if err != nil && !errors.Is(err, bufio.ErrBufferFull) {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	var pending []string
	flush := func() {
		if len(pending) == 0 {
			return
		}
		s.metrics.AddTaskLines(stream, len(pending))
		s.emitter.Emit(topic, Output{TaskID: id, Text: strings.Join(pending, "\n")})
		pending = nil
	}

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				if x.ctx.Err() == nil {
					flush()
				}
				return
			}
			buf.Append(line)
			pending = append(pending, line)
		case <-ticker.C:
			flush()
		case <-x.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) trackActive(delta int) {
	s.statsMu.Lock()
	s.active += delta
	if s.active > s.peak {
		s.peak = s.active
	}
	active := s.active
	s.statsMu.Unlock()
	s.metrics.SetTasksActive(active)
}

func trimEOL(b []byte) []byte {
	n := len(b)
	if n > 0 && b[n-1] == '\n' {
		n--
	}
	if n > 0 && b[n-1] == '\r' {
		n--
	}
	return b[:n]
}
