package terminal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellcore/internal/events"
	"github.com/GriffinCanCode/shellcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
	"github.com/GriffinCanCode/shellcore/internal/shared/proc"
	"github.com/GriffinCanCode/shellcore/internal/shared/utils"
)

const (
	readBufferSize = 8192
	killTimeout    = 2 * time.Second
)

// Manager owns the registry of live terminal sessions.
// It is safe for concurrent use.
type Manager struct {
	cfg     Config
	emitter events.Emitter
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu       sync.RWMutex
	sessions map[string]*session

	wg sync.WaitGroup
}

// session is one PTY and the process attached to it
type session struct {
	id        string
	kind      Kind
	shell     string
	startedAt time.Time
	cmd       *exec.Cmd
	ptmx      *os.File
	script    string

	// writeMu serializes writers on the PTY
	writeMu sync.Mutex

	mu     sync.RWMutex
	cols   uint16
	rows   uint16
	dir    string
	exited bool

	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics enables metrics collection
func WithMetrics(mt *monitoring.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// NewManager creates a manager streaming session output to emitter
func NewManager(cfg Config, emitter events.Emitter, opts ...Option) *Manager {
	if cfg.StartupDelay < 0 {
		cfg.StartupDelay = 0
	}
	if emitter == nil {
		emitter = events.Discard
	}
	m := &Manager{
		cfg:      cfg,
		emitter:  emitter,
		logger:   zap.NewNop(),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Open starts an interactive local shell in a new 80x24 PTY. shellKind is a
// shell name such as "zsh", an absolute path, or empty for the default.
func (m *Manager) Open(id, shellKind string) error {
	if err := m.reserve(id); err != nil {
		return err
	}
	path, err := resolveShell(shellKind, m.cfg.Shell)
	if err != nil {
		return err
	}

	dir := startDir()
	cmd := exec.Command(path, shellArgs()...)
	cmd.Dir = dir
	cmd.Env = localEnv(os.Environ(), m.cfg.EnvExclude)

	s, err := m.start(id, KindLocal, path, dir, cmd, "")
	if err != nil {
		return err
	}

	if hook := osc7Hook(shellFamily(path)); hook != "" {
		s.write(m.logger, []byte(hook))
	}
	if m.cfg.ClearOnStart {
		time.AfterFunc(m.cfg.StartupDelay, func() {
			if m.get(id) == s {
				s.write(m.logger, []byte("clear\n"))
			}
		})
	}
	return nil
}

// OpenSSH starts an ssh client in a new 80x24 PTY. With a password the
// client runs under expect, which answers the password prompt; without one
// key-based authentication is assumed.
func (m *Manager) OpenSSH(id string, opts SSHOptions) error {
	if err := m.reserve(id); err != nil {
		return err
	}
	opts, err := opts.normalize()
	if err != nil {
		return err
	}

	var (
		cmd    *exec.Cmd
		script string
	)
	if opts.Password != "" {
		expect, err := exec.LookPath("expect")
		if err != nil {
			return fmt.Errorf("%w: expect is required for password logins: %v", errs.ErrSpawnFailure, err)
		}
		if script, err = writeExpectScript(m.cfg.ScriptDir, id, opts); err != nil {
			return err
		}
		cmd = exec.Command(expect, "-f", script)
	} else {
		ssh, err := exec.LookPath("ssh")
		if err != nil {
			return fmt.Errorf("%w: ssh: %v", errs.ErrSpawnFailure, err)
		}
		cmd = exec.Command(ssh, opts.sshArgs()...)
	}

	// the local start dir says nothing about the remote shell, so the
	// session reports no directory
	cmd.Dir = startDir()
	cmd.Env = sshEnv(os.Environ(), m.cfg.EnvExclude)

	if _, err := m.start(id, KindSSH, cmd.Path, "", cmd, script); err != nil {
		if script != "" {
			os.Remove(script)
		}
		return err
	}
	m.logger.Info("ssh session opened",
		zap.String("session_id", id),
		zap.String("target", opts.target()),
		zap.Uint16("port", opts.Port),
		zap.Bool("password", opts.Password != ""))
	return nil
}

// reserve checks that id is usable for a new session
func (m *Manager) reserve(id string) error {
	if err := utils.ValidateID(id, "session_id"); err != nil {
		return err
	}
	m.mu.RLock()
	_, exists := m.sessions[id]
	m.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: terminal session %s", errs.ErrDuplicateID, id)
	}
	return nil
}

// start launches cmd in a PTY and registers the session. pty.Start puts the
// child in its own session, so the shell's pid also names its process group.
func (m *Manager) start(id string, kind Kind, shellPath, dir string, cmd *exec.Cmd, script string) (*session, error) {
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: DefaultCols, Rows: DefaultRows})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSpawnFailure, err)
	}

	s := &session{
		id:        id,
		kind:      kind,
		shell:     shellPath,
		startedAt: time.Now(),
		cmd:       cmd,
		ptmx:      ptmx,
		script:    script,
		cols:      DefaultCols,
		rows:      DefaultRows,
		dir:       dir,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		// lost a race with a concurrent open of the same id
		s.script = ""
		s.close(m.logger)
		return nil, fmt.Errorf("%w: terminal session %s", errs.ErrDuplicateID, id)
	}
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()
	m.metrics.SetTerminalsActive(count)

	m.wg.Add(2)
	go m.wait(s)
	go m.read(s)

	m.logger.Info("terminal session opened",
		zap.String("session_id", id),
		zap.String("kind", string(kind)),
		zap.String("shell", shellPath),
		zap.Int("pid", cmd.Process.Pid))
	return s, nil
}

// read forwards PTY output until the PTY closes
func (m *Manager) read(s *session) {
	defer m.wg.Done()

	topic := events.TerminalTopic(s.id)
	var tracker dirTracker
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if s.kind == KindLocal {
				if dir, ok := tracker.Feed(chunk); ok {
					s.setDir(dir)
				}
			}
			m.metrics.AddTerminalBytes(n)
			m.emitter.Emit(topic, chunk)
		}
		if err != nil {
			// EIO once the child side is gone, ErrClosed after Close
			m.logger.Debug("terminal reader stopped",
				zap.String("session_id", s.id),
				zap.Error(err))
			return
		}
	}
}

// wait reaps the session's process
func (m *Manager) wait(s *session) {
	defer m.wg.Done()

	err := s.cmd.Wait()
	s.mu.Lock()
	s.exited = true
	s.mu.Unlock()
	close(s.done)

	m.logger.Debug("terminal process exited",
		zap.String("session_id", s.id),
		zap.Error(err))
}

func (m *Manager) get(id string) *session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Write sends raw input to a session. Unknown sessions and write failures
// are logged and ignored: they usually mean the session just closed.
func (m *Manager) Write(id string, data []byte) error {
	s := m.get(id)
	if s == nil {
		m.logger.Debug("write to unknown terminal session", zap.String("session_id", id))
		return nil
	}
	s.write(m.logger, data)
	return nil
}

func (s *session) write(logger *zap.Logger, data []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.ptmx.Write(data); err != nil {
		logger.Warn("terminal write failed",
			zap.String("session_id", s.id),
			zap.Error(err))
	}
}

// Resize changes a session's PTY dimensions
func (m *Manager) Resize(id string, cols, rows uint16) error {
	if cols == 0 || rows == 0 {
		return fmt.Errorf("%w: cols and rows must be positive", errs.ErrInvalidArgument)
	}
	s := m.get(id)
	if s == nil {
		return fmt.Errorf("%w: terminal session %s", errs.ErrNotFound, id)
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Cols: cols, Rows: rows}); err != nil {
		return fmt.Errorf("%w: resize: %v", errs.ErrIOFailure, err)
	}
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.mu.Unlock()
	return nil
}

// Close terminates a session and releases its PTY. Closing an unknown or
// already closed session is a no-op.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	m.metrics.SetTerminalsActive(count)

	s.close(m.logger)
	m.logger.Info("terminal session closed", zap.String("session_id", id))
	return nil
}

func (s *session) close(logger *zap.Logger) {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
		defer cancel()

		if err := proc.KillTree(ctx, s.cmd.Process.Pid); err != nil {
			logger.Warn("failed to kill terminal processes",
				zap.String("session_id", s.id),
				zap.Error(err))
		}
		// job-control children may sit in other process groups of the session
		if err := proc.KillGroup(s.cmd.Process.Pid); err != nil {
			logger.Debug("kill terminal process group", zap.String("session_id", s.id), zap.Error(err))
		}
		s.ptmx.Close()
		if s.script != "" {
			if err := os.Remove(s.script); err != nil && !os.IsNotExist(err) {
				logger.Warn("failed to remove expect script",
					zap.String("path", s.script),
					zap.Error(err))
			}
		}
	})
}

// CurrentDirectory returns the last directory the session's shell reported,
// or its starting directory if none has been reported yet.
func (m *Manager) CurrentDirectory(id string) (string, error) {
	s := m.get(id)
	if s == nil {
		return "", fmt.Errorf("%w: terminal session %s", errs.ErrNotFound, id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir, nil
}

func (s *session) setDir(dir string) {
	s.mu.Lock()
	s.dir = dir
	s.mu.Unlock()
}

func (s *session) info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionInfo{
		ID:         s.id,
		Kind:       s.kind,
		Shell:      s.shell,
		Cols:       s.cols,
		Rows:       s.rows,
		StartedAt:  s.startedAt,
		CurrentDir: s.dir,
		Active:     !s.exited,
	}
}

// Get describes one session
func (m *Manager) Get(id string) (SessionInfo, error) {
	s := m.get(id)
	if s == nil {
		return SessionInfo{}, fmt.Errorf("%w: terminal session %s", errs.ErrNotFound, id)
	}
	return s.info(), nil
}

// List describes every registered session, ordered by id
func (m *Manager) List() []SessionInfo {
	m.mu.RLock()
	out := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.info())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown closes every session and waits for their readers to finish
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	m.metrics.SetTerminalsActive(0)

	for _, s := range sessions {
		s.close(m.logger)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
