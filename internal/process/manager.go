package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status is the lifecycle state of a managed process.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusFailed   Status = "failed"
)

const (
	defaultRestartDelay    = 2 * time.Second
	defaultMaxRestartDelay = time.Minute
	defaultGracefulTimeout = 10 * time.Second
	defaultHealthInterval  = 30 * time.Second

	healthCheckTimeout     = 5 * time.Second
	maxConsecutiveFailures = 3
	killWait               = 5 * time.Second
)

// Config describes the child process.
type Config struct {
	// Name labels log lines.
	Name   string
	Binary string
	Args   []string

	// Env is appended to the parent environment.
	Env     []string
	WorkDir string

	RestartOnFailure bool

	// RestartDelay is the first backoff step; each further attempt doubles
	// it up to MaxRestartDelay.
	RestartDelay    time.Duration
	MaxRestartDelay time.Duration

	// MaxRestartAttempts limits restarts. Zero means unlimited.
	MaxRestartAttempts int

	// GracefulTimeout is the wait between SIGTERM and SIGKILL.
	GracefulTimeout time.Duration

	// HealthCheckFunc, when set, is polled every HealthCheckInterval.
	HealthCheckFunc     func(ctx context.Context) error
	HealthCheckInterval time.Duration

	OnStart func()
	OnStop  func(err error)
}

// Logger is the logging interface used by the manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager supervises one child process.
//
// Thread Safety: all methods are safe for concurrent use.
type Manager struct {
	cfg    Config
	logger Logger

	mu            sync.RWMutex
	cmd           *exec.Cmd
	status        Status
	restarts      int
	lastErr       error
	startedAt     time.Time
	stopRequested bool
	done          chan struct{}
}

// NewManager creates a stopped manager, filling zero durations with defaults.
func NewManager(cfg Config) *Manager {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = defaultRestartDelay
	}
	if cfg.MaxRestartDelay < cfg.RestartDelay {
		cfg.MaxRestartDelay = max(defaultMaxRestartDelay, cfg.RestartDelay)
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = defaultGracefulTimeout
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = defaultHealthInterval
	}
	return &Manager{cfg: cfg, logger: noopLogger{}, status: StatusStopped}
}

// SetLogger sets the logger. Call before Start.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.logger = logger
}

// Start launches the process and its supervisor goroutine. Cancelling ctx
// kills the process and ends supervision.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.status == StatusRunning || m.status == StatusStarting {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, m.cfg.Name)
	}
	m.status = StatusStarting
	m.stopRequested = false
	m.done = make(chan struct{})
	m.mu.Unlock()

	if err := m.launch(ctx); err != nil {
		m.mu.Lock()
		m.status = StatusFailed
		m.lastErr = err
		close(m.done)
		m.mu.Unlock()
		return err
	}
	go m.supervise(ctx)
	return nil
}

func (m *Manager) launch(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, m.cfg.Binary, m.cfg.Args...) //nolint:gosec // binary comes from operator config
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if m.cfg.Env != nil {
		cmd.Env = append(os.Environ(), m.cfg.Env...)
	}
	cmd.Dir = m.cfg.WorkDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", m.cfg.Name, err)
	}

	m.mu.Lock()
	m.cmd = cmd
	m.status = StatusRunning
	m.startedAt = time.Now()
	m.mu.Unlock()

	go m.forward("stdout", stdout)
	go m.forward("stderr", stderr)

	m.logger.Info("process started", "name", m.cfg.Name, "pid", cmd.Process.Pid)
	if m.cfg.OnStart != nil {
		m.cfg.OnStart()
	}
	return nil
}

// forward logs the child's output one line at a time.
func (m *Manager) forward(stream string, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m.logger.Debug("process output", "name", m.cfg.Name, "stream", stream, "line", sc.Text())
	}
}

func (m *Manager) supervise(ctx context.Context) {
	defer func() {
		m.mu.RLock()
		done := m.done
		m.mu.RUnlock()
		close(done)
	}()

	for {
		m.mu.RLock()
		cmd := m.cmd
		m.mu.RUnlock()

		err := m.wait(ctx, cmd)

		m.mu.Lock()
		stopping := m.stopRequested
		if stopping || ctx.Err() != nil {
			m.status = StatusStopped
		} else {
			m.status = StatusFailed
			m.lastErr = err
		}
		m.mu.Unlock()

		if m.cfg.OnStop != nil {
			if stopping {
				m.cfg.OnStop(nil)
			} else {
				m.cfg.OnStop(err)
			}
		}
		if stopping || ctx.Err() != nil {
			m.logger.Info("process stopped", "name", m.cfg.Name)
			return
		}

		m.logger.Warn("process exited unexpectedly", "name", m.cfg.Name, "error", err)
		if !m.cfg.RestartOnFailure || !IsRecoverable(err) {
			return
		}

		m.mu.Lock()
		m.restarts++
		attempt := m.restarts
		m.mu.Unlock()
		if m.cfg.MaxRestartAttempts > 0 && attempt > m.cfg.MaxRestartAttempts {
			m.logger.Error("max restart attempts reached", "name", m.cfg.Name, "attempts", attempt-1)
			return
		}

		if !m.relaunch(ctx, attempt) {
			return
		}
	}
}

// relaunch waits out the backoff for attempt and starts the process again,
// retrying failed launches until one succeeds, the attempt budget runs out,
// a stop is requested or ctx ends.
func (m *Manager) relaunch(ctx context.Context, attempt int) bool {
	for {
		delay := m.calculateBackoffDelay(attempt)
		m.logger.Info("restarting process", "name", m.cfg.Name, "attempt", attempt, "delay", delay)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		m.mu.RLock()
		stopping := m.stopRequested
		m.mu.RUnlock()
		if stopping {
			return false
		}

		err := m.launch(ctx)
		if err == nil {
			return true
		}
		m.logger.Error("restart failed", "name", m.cfg.Name, "error", err)

		m.mu.Lock()
		m.restarts++
		attempt = m.restarts
		m.mu.Unlock()
		if m.cfg.MaxRestartAttempts > 0 && attempt > m.cfg.MaxRestartAttempts {
			m.logger.Error("max restart attempts reached", "name", m.cfg.Name, "attempts", attempt-1)
			return false
		}
	}
}

// calculateBackoffDelay doubles RestartDelay per attempt, capped at MaxRestartDelay.
func (m *Manager) calculateBackoffDelay(attempt int) time.Duration {
	delay := m.cfg.RestartDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= m.cfg.MaxRestartDelay {
			return m.cfg.MaxRestartDelay
		}
	}
	return delay
}

// wait blocks until the process exits, ctx ends, or the health check
// fails maxConsecutiveFailures times, in which case the process is killed.
func (m *Manager) wait(ctx context.Context, cmd *exec.Cmd) error {
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	if m.cfg.HealthCheckFunc == nil {
		return <-exited
	}

	ticker := time.NewTicker(m.cfg.HealthCheckInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case err := <-exited:
			return err
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
			err := m.cfg.HealthCheckFunc(checkCtx)
			cancel()
			if err == nil {
				if failures > 0 {
					m.logger.Info("health check recovered", "name", m.cfg.Name, "previous_failures", failures)
				}
				failures = 0
				continue
			}
			failures++
			m.logger.Warn("health check failed", "name", m.cfg.Name, "error", err, "consecutive_failures", failures)
			if failures < maxConsecutiveFailures {
				continue
			}

			m.logger.Error("health check failed repeatedly, killing process", "name", m.cfg.Name)
			_ = cmd.Process.Kill() //nolint:errcheck // exit observed below
			select {
			case exitErr := <-exited:
				return fmt.Errorf("%w: %w", ErrHealthCheckFailed, exitErr)
			case <-time.After(killWait):
				return ErrHealthCheckFailed
			}
		}
	}
}

// Stop sends SIGTERM to the process group, then SIGKILL after
// GracefulTimeout. Stopping an idle manager is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	// Also cancels a restart waiting out its backoff.
	m.stopRequested = true
	if m.status != StatusRunning && m.status != StatusStarting {
		m.mu.Unlock()
		return nil
	}
	cmd, done := m.cmd, m.done
	m.mu.Unlock()

	if cmd == nil || cmd.Process == nil || done == nil {
		return nil
	}

	pid := cmd.Process.Pid
	m.logger.Info("stopping process", "name", m.cfg.Name, "pid", pid)
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		m.logger.Warn("sending SIGTERM", "name", m.cfg.Name, "error", err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(m.cfg.GracefulTimeout):
		m.logger.Warn("graceful shutdown timed out, sending SIGKILL", "name", m.cfg.Name)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("killing %s: %w", m.cfg.Name, err)
	}
	<-done
	return nil
}

// Status returns the lifecycle state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsRunning reports whether the process is up.
func (m *Manager) IsRunning() bool {
	return m.Status() == StatusRunning
}

// Stats is a point-in-time view of the managed process.
type Stats struct {
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	PID          int           `json:"pid,omitempty"`
	Uptime       time.Duration `json:"uptime,omitempty"`
	RestartCount int           `json:"restart_count"`
	LastError    string        `json:"last_error,omitempty"`
}

// Stats returns the current process statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{Name: m.cfg.Name, Status: m.status, RestartCount: m.restarts}
	if m.cmd != nil && m.cmd.Process != nil {
		s.PID = m.cmd.Process.Pid
	}
	if m.status == StatusRunning {
		s.Uptime = time.Since(m.startedAt)
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// WaitReady polls check every interval until it succeeds or ctx ends.
// Used to hold start-up until a freshly launched sidecar answers.
func WaitReady(ctx context.Context, check func(context.Context) error, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	for {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		last = check(checkCtx)
		cancel()
		if last == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for readiness: %w (last error: %w)", ctx.Err(), last)
		case <-ticker.C:
		}
	}
}
