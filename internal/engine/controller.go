package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/visionpilot/internal/clock"
	"github.com/nerrad567/visionpilot/internal/infrastructure/config"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

// ControllerConfig lists a controller's collaborators.
type ControllerConfig struct {
	Runtime  *Runtime
	Config   *config.Config
	Locator  perception.Locator
	Capturer perception.Capturer
	Provider perception.Provider
	Clock    clock.Clock

	// Renderer draws the diagnostic overlay (may be nil).
	Renderer Renderer

	// Observers receive transitions, status and the session summary.
	Observers []Observer

	// DryRun is reported in status; click suppression lives in the actuator.
	DryRun bool

	Logger Logger
}

// Controller runs one automation session.
//
// Thread Safety:
//   - Run and Step must be called from a single goroutine.
//   - RequestStop and Status are safe from any goroutine.
type Controller struct {
	rt        *Runtime
	cfg       *config.Config
	locator   perception.Locator
	capturer  perception.Capturer
	provider  perception.Provider
	clock     clock.Clock
	renderer  Renderer
	observers observers
	dryRun    bool
	logger    Logger

	session *Session
	stop    atomic.Bool
	status  atomic.Pointer[Status]
}

// NewController validates the collaborators and creates a controller.
func NewController(cc ControllerConfig) (*Controller, error) {
	switch {
	case cc.Runtime == nil:
		return nil, fmt.Errorf("%w: runtime", ErrMissingDependency)
	case cc.Locator == nil:
		return nil, fmt.Errorf("%w: window locator", ErrMissingDependency)
	case cc.Capturer == nil:
		return nil, fmt.Errorf("%w: capturer", ErrMissingDependency)
	case cc.Provider == nil:
		return nil, fmt.Errorf("%w: detection provider", ErrMissingDependency)
	}
	if cc.Config == nil {
		cc.Config = config.Default()
	}
	if cc.Clock == nil {
		cc.Clock = clock.Real{}
	}
	if cc.Logger == nil {
		cc.Logger = noopLogger{}
	}
	return &Controller{
		rt:        cc.Runtime,
		cfg:       cc.Config,
		locator:   cc.Locator,
		capturer:  cc.Capturer,
		provider:  cc.Provider,
		clock:     cc.Clock,
		renderer:  cc.Renderer,
		observers: observers{list: cc.Observers, logger: cc.Logger},
		dryRun:    cc.DryRun,
		logger:    cc.Logger,
	}, nil
}

// RequestStop asks the loop to finish after the current iteration.
func (c *Controller) RequestStop() {
	c.stop.Store(true)
}

// Status returns the latest published snapshot.
func (c *Controller) Status() Status {
	if s := c.status.Load(); s != nil {
		return *s
	}
	return Status{DryRun: c.dryRun}
}

// Session returns the live session. Only the loop goroutine may use it.
func (c *Controller) Session() *Session { return c.session }

// Run starts a session and iterates until ctx is done or a stop is
// requested. Teardown runs on every exit path, including panics.
//
// Returns:
//   - Summary: Counters of the finished session
//   - error: ErrLoopPanic if the loop panicked, nil otherwise
func (c *Controller) Run(ctx context.Context) (sum Summary, err error) {
	c.begin()
	reason := EndStopped

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("loop panicked", "panic", r)
			err = fmt.Errorf("%w: %v", ErrLoopPanic, r)
			reason = EndPanic
		}
		sum = c.teardown(reason)
	}()

	interval := config.Seconds(c.cfg.Timing.LoopInterval)
	for {
		if ctx.Err() != nil {
			reason = EndCancelled
			return sum, nil
		}
		if c.stop.Load() {
			return sum, nil
		}
		if c.Step(ctx) != nil {
			continue
		}
		_ = c.clock.Sleep(ctx, interval)
	}
}

// begin opens a new session in the home state.
func (c *Controller) begin() {
	now := c.clock.Now()
	c.session = newSession(now, c.dryRun)
	c.logger.Info("session started", "session_id", c.session.ID, "dry_run", c.dryRun)
	c.transition(state.Home, ReasonStart)
	c.publish()
}

// teardown releases resources and emits the summary.
func (c *Controller) teardown(reason string) Summary {
	if err := c.capturer.Close(); err != nil {
		c.logger.Warn("closing capturer failed", "error", err)
	}
	if c.renderer != nil {
		if err := c.renderer.Close(); err != nil {
			c.logger.Warn("closing overlay failed", "error", err)
		}
	}

	sum := c.session.summary(c.clock.Now(), reason)
	c.logger.Info("session ended",
		"session_id", sum.SessionID,
		"reason", reason,
		"runtime", sum.Runtime.Duration(),
		"cycles", sum.Cycles,
		"errors", sum.Errors,
		"iterations", sum.Iterations,
		"avg_cycle", sum.AvgCycle.Duration(),
	)

	final := c.snapshot()
	final.Running = false
	c.status.Store(&final)

	c.observers.sessionEnd(sum)
	return sum
}

// Step runs one iteration of the loop. It only returns an error when ctx
// is cancelled during a wait.
func (c *Controller) Step(ctx context.Context) error {
	if c.session == nil {
		c.begin()
	}
	s := c.session
	s.Iterations++

	win, err := c.locator.Locate(ctx, c.cfg.Window.Keyword)
	if err != nil {
		s.windowFound = false
		c.logger.Warn("target window unavailable", "keyword", c.cfg.Window.Keyword, "error", err)
		c.publish()
		return c.clock.Sleep(ctx, config.Seconds(c.cfg.Timing.WindowRetryDelay))
	}
	s.windowFound = true

	dets := c.perceive(ctx, win)
	s.detections = len(dets)

	c.rt.Modes.AutoDetect(dets)

	if candidate, ok := c.resolve(dets); ok && candidate != s.Current {
		c.transition(candidate, ReasonDetected)
	}

	if c.timedOut() {
		c.forceHome()
	} else {
		c.dispatch(ctx, dets, win)
	}

	c.render(dets)
	c.publish()
	return nil
}

// perceive captures a frame and returns filtered detections. Faults
// degrade to no detections.
func (c *Controller) perceive(ctx context.Context, win perception.WindowInfo) []perception.Detection {
	frame, err := c.capturer.Capture(ctx, win)
	if err != nil {
		c.logger.Warn("capture failed", "error", err)
		return nil
	}

	dets, err := c.detect(ctx, frame)
	if err != nil {
		c.logger.Warn("detection failed", "error", err)
		return nil
	}
	return c.rt.Filter.FilterValid(dets)
}

func (c *Controller) detect(ctx context.Context, frame perception.Frame) (dets []perception.Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			dets, err = nil, fmt.Errorf("provider panicked: %v", r)
		}
	}()
	return c.provider.Detect(ctx, frame)
}

// resolve tries configured signatures first, then handler dispatch. Once
// a mode is set only states of that context are candidates.
func (c *Controller) resolve(dets []perception.Detection) (state.State, bool) {
	scope := state.Scope(c.rt.Modes.Current())
	if c.rt.Validator != nil {
		if s, ok := c.rt.Validator.FindMatchingStateIn(dets, scope); ok {
			return s, true
		}
	}
	return c.rt.States.FindCurrentStateIn(dets, scope)
}

func (c *Controller) timedOut() bool {
	s := c.session
	limit := c.cfg.StateTimeout(string(s.Current))
	return c.clock.Now().Sub(s.StateStart) > limit
}

func (c *Controller) forceHome() {
	s := c.session
	s.Errors++
	c.logger.Warn("state timed out, resetting to home",
		"state", s.Current,
		"age", c.clock.Now().Sub(s.StateStart),
		"cycles", s.Cycles,
		"errors", s.Errors,
	)
	c.transition(state.Home, ReasonTimeout)
}

// dispatch runs the current handler and applies its requested transition.
func (c *Controller) dispatch(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) {
	s := c.session
	h, ok := c.rt.States.Handler(s.Current)
	if !ok {
		c.logger.Error("no handler for state", "state", s.Current)
		c.transition(state.Error, ReasonNoHandler)
		return
	}

	next, err := c.execute(ctx, h, dets, win)
	if err != nil {
		c.logger.Error("handler failed", "state", s.Current, "error", err)
	}
	if next != state.None && next != s.Current {
		c.transition(next, ReasonHandler)
	}
}

func (c *Controller) execute(ctx context.Context, h state.Handler, dets []perception.Detection, win perception.WindowInfo) (next state.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = state.None, fmt.Errorf("handler %s panicked: %v", h.State(), r)
		}
	}()
	return h.Execute(ctx, dets, win)
}

// transition makes next current, runs its entry hook and counts cycles.
// Timeout resets never count as a completed cycle.
func (c *Controller) transition(next state.State, reason string) {
	s := c.session
	now := c.clock.Now()

	if h, ok := c.rt.States.Handler(next); ok {
		if e, ok := h.(state.Enterer); ok {
			e.Enter(now)
		}
	}

	prev := s.Current
	s.Previous = prev
	s.Current = next
	s.StateStart = now

	if reason != ReasonTimeout && state.CompletesCycle(prev, next) {
		s.Cycles++
		c.logger.Info("cycle completed", "cycles", s.Cycles, "errors", s.Errors)
	}

	c.logger.Info("state transition", "from", prev, "to", next, "reason", reason)
	c.observers.transition(Transition{
		SessionID: s.ID,
		From:      prev,
		To:        next,
		Reason:    reason,
		At:        now,
		Cycles:    s.Cycles,
	})
}

func (c *Controller) render(dets []perception.Detection) {
	if c.renderer == nil {
		return
	}
	if err := c.renderer.Render(c.snapshot(), dets); err != nil {
		c.logger.Debug("overlay render failed", "error", err)
	}
}

func (c *Controller) snapshot() Status {
	s := c.session
	now := c.clock.Now()
	return Status{
		SessionID:   s.ID,
		Running:     true,
		State:       s.Current,
		Previous:    s.Previous,
		Mode:        c.rt.Modes.Current(),
		Cycles:      s.Cycles,
		Errors:      s.Errors,
		Iterations:  s.Iterations,
		Detections:  s.detections,
		Runtime:     Seconds(now.Sub(s.StartedAt)),
		StateAge:    Seconds(now.Sub(s.StateStart)),
		WindowFound: s.windowFound,
		DryRun:      c.dryRun,
		UpdatedAt:   now,
	}
}

// publish stores a snapshot for readers and hands it to observers.
func (c *Controller) publish() {
	snap := c.snapshot()
	c.status.Store(&snap)
	c.observers.cycle(snap)
}

// idleStatus is reported by a host with no session.
func idleStatus(last Summary, dryRun bool, now time.Time) Status {
	return Status{
		SessionID:  last.SessionID,
		Cycles:     last.Cycles,
		Errors:     last.Errors,
		Iterations: last.Iterations,
		Runtime:    last.Runtime,
		DryRun:     dryRun,
		UpdatedAt:  now,
	}
}
