package engine

import (
	"context"
	"sync"

	"github.com/nerrad567/visionpilot/internal/clock"
	"github.com/nerrad567/visionpilot/internal/mode"
)

// ControllerFactory builds a fresh controller for each session.
type ControllerFactory func() (*Controller, error)

// Host runs sessions on a dedicated goroutine and serialises control
// requests from the API, the status bus and signal handling.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Host struct {
	ctx     context.Context
	factory ControllerFactory
	modes   *mode.Manager
	clock   clock.Clock
	dryRun  bool
	logger  Logger

	mu      sync.Mutex
	current *Controller
	cancel  context.CancelFunc
	done    chan struct{}
	last    Summary
	lastErr error
}

// NewHost creates an idle host.
//
// Parameters:
//   - ctx: Process lifetime; cancelling it ends any running session
//   - factory: Builds the controller for each session
//   - modes: Shared mode store, guarded against edits while running
//   - clk: Clock used for idle status timestamps (may be nil)
//   - dryRun: Reported in idle status
//   - logger: Logger instance (may be nil)
func NewHost(ctx context.Context, factory ControllerFactory, modes *mode.Manager, clk clock.Clock, dryRun bool, logger Logger) *Host {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	done := make(chan struct{})
	close(done)
	return &Host{
		ctx:     ctx,
		factory: factory,
		modes:   modes,
		clock:   clk,
		dryRun:  dryRun,
		logger:  logger,
		done:    done,
	}
}

// Start launches a session. The session ends when Stop is called or the
// host context is cancelled.
//
// Returns:
//   - error: ErrRunning if a session is active, or the factory error
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil {
		return ErrRunning
	}
	c, err := h.factory()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(h.ctx)
	done := make(chan struct{})
	h.current, h.cancel, h.done = c, cancel, done

	go func() {
		defer close(done)
		defer cancel()
		sum, runErr := c.Run(runCtx)

		h.mu.Lock()
		h.last, h.lastErr = sum, runErr
		h.current, h.cancel = nil, nil
		h.mu.Unlock()

		if runErr != nil {
			h.logger.Error("session aborted", "session_id", sum.SessionID, "error", runErr)
		}
	}()
	return nil
}

// Stop requests the active session to finish and waits for teardown or
// for ctx to expire.
func (h *Host) Stop(ctx context.Context) error {
	h.mu.Lock()
	c, done := h.current, h.done
	h.mu.Unlock()

	if c == nil {
		return ErrNotRunning
	}
	c.RequestStop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		h.mu.Lock()
		if h.cancel != nil {
			h.cancel()
		}
		h.mu.Unlock()
		return ctx.Err()
	}
}

// Running reports whether a session is active.
func (h *Host) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current != nil
}

// Wait blocks until the active session (if any) has torn down and returns
// its error.
func (h *Host) Wait() error {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()

	<-done

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// Status returns the live snapshot, or the last session's counters when idle.
func (h *Host) Status() Status {
	h.mu.Lock()
	c, last := h.current, h.last
	h.mu.Unlock()

	if c != nil {
		return c.Status()
	}
	st := idleStatus(last, h.dryRun, h.clock.Now())
	if h.modes != nil {
		st.Mode = h.modes.Current()
	}
	return st
}

// LastSummary returns the summary of the most recent finished session.
func (h *Host) LastSummary() Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// SetMode changes the current mode while idle.
func (h *Host) SetMode(m mode.Mode) error {
	if h.Running() {
		return ErrRunning
	}
	return h.modes.SetMode(m)
}

// UpdateFeatureConfig applies partial feature settings for m while idle.
func (h *Host) UpdateFeatureConfig(m mode.Mode, updates mode.FeatureUpdates) error {
	if h.Running() {
		return ErrRunning
	}
	return h.modes.UpdateModeConfig(m, updates)
}

// ResetFeatureConfig restores m's baseline settings while idle.
func (h *Host) ResetFeatureConfig(m mode.Mode) error {
	if h.Running() {
		return ErrRunning
	}
	return h.modes.ResetToDefaults(m)
}
