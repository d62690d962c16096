package feature

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/visionpilot/internal/clock"
	"github.com/nerrad567/visionpilot/internal/mode"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

// Logger is the logging interface used by the feature package.
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

// Info describes a registered strategy.
type Info struct {
	Type          Type          `json:"type"`
	Mode          mode.Mode     `json:"mode"`
	Description   string        `json:"description"`
	Cooldown      time.Duration `json:"cooldown"`
	LastExecution time.Time     `json:"last_execution,omitzero"`
	OnCooldown    bool          `json:"on_cooldown"`
}

// Registry holds strategies per mode with an explicit execution order.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Strategies execute outside the lock.
type Registry struct {
	mu         sync.RWMutex
	strategies map[mode.Mode]map[Type]Strategy
	order      map[mode.Mode][]Type
	clock      clock.Clock
	logger     Logger
}

// NewRegistry creates an empty registry. clk stamps cooldowns.
func NewRegistry(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Registry{
		strategies: make(map[mode.Mode]map[Type]Strategy),
		order:      make(map[mode.Mode][]Type),
		clock:      clk,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register adds s under its mode and appends it to that mode's order.
func (r *Registry) Register(s Strategy) error {
	if s == nil || s.Type() == "" || !s.Mode().Valid() {
		return ErrInvalidStrategy
	}
	m, t := s.Mode(), s.Type()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.strategies[m] == nil {
		r.strategies[m] = make(map[Type]Strategy)
	}
	if _, exists := r.strategies[m][t]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateStrategy, m, t)
	}
	r.strategies[m][t] = s
	if !slices.Contains(r.order[m], t) {
		r.order[m] = append(r.order[m], t)
	}

	r.logger.Debug("feature strategy registered", "mode", m, "type", t, "cooldown", s.Cooldown())
	return nil
}

// Unregister removes a strategy. It reports whether one was removed.
func (r *Registry) Unregister(m mode.Mode, t Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.strategies[m][t]; !ok {
		return false
	}
	delete(r.strategies[m], t)
	r.order[m] = slices.DeleteFunc(r.order[m], func(x Type) bool { return x == t })
	return true
}

// Strategy returns the strategy of type t in mode m.
func (r *Registry) Strategy(m mode.Mode, t Type) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[m][t]
	return s, ok
}

// SetExecutionOrder replaces m's order. Types that are not registered are
// dropped and returned.
func (r *Registry) SetExecutionOrder(m mode.Mode, order []Type) (dropped []Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]Type, 0, len(order))
	for _, t := range order {
		if _, ok := r.strategies[m][t]; !ok || slices.Contains(kept, t) {
			dropped = append(dropped, t)
			continue
		}
		kept = append(kept, t)
	}
	r.order[m] = kept

	if len(dropped) > 0 {
		r.logger.Warn("execution order referenced unknown strategies", "mode", m, "dropped", dropped)
	}
	return dropped
}

// ExecutionOrder returns a copy of m's order.
func (r *Registry) ExecutionOrder(m mode.Mode) []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order[m])
}

// Available describes m's strategies in execution order.
func (r *Registry) Available(m mode.Mode) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.order[m]))
	for _, t := range r.order[m] {
		s := r.strategies[m][t]
		out = append(out, Info{
			Type:          t,
			Mode:          m,
			Description:   s.Description(),
			Cooldown:      s.Cooldown(),
			LastExecution: s.LastExecution(),
			OnCooldown:    s.OnCooldown(),
		})
	}
	return out
}

// ordered snapshots m's strategies in execution order.
func (r *Registry) ordered(m mode.Mode) []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Strategy, 0, len(r.order[m]))
	for _, t := range r.order[m] {
		if s, ok := r.strategies[m][t]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ExecuteFeatures runs m's eligible strategies in order and returns the
// first requested transition, or state.None.
//
// Faults never escape: errors and panics are logged, the cooldown is still
// stamped, and the next strategy runs.
func (r *Registry) ExecuteFeatures(ctx context.Context, m mode.Mode, dets []perception.Detection, win perception.WindowInfo, cfg mode.FeatureConfig) state.State {
	for _, s := range r.ordered(m) {
		if ctx.Err() != nil {
			return state.None
		}

		name := string(s.Type())
		switch {
		case !cfg.Enabled(name):
			continue
		case s.OnCooldown():
			r.logger.Debug("feature cooling down", "type", name)
			continue
		case !s.CanExecute(dets, cfg):
			continue
		}

		next, err := r.run(ctx, s, dets, win)
		s.MarkExecuted(r.clock.Now())

		if err != nil {
			r.logger.Error("feature failed", "mode", m, "type", name, "error", err)
			continue
		}
		r.logger.Info("feature executed", "mode", m, "type", name, "next", next)
		if next != state.None {
			return next
		}
	}
	return state.None
}

func (r *Registry) run(ctx context.Context, s Strategy, dets []perception.Detection, win perception.WindowInfo) (next state.State, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			next = state.None
			err = fmt.Errorf("%w: %v", ErrStrategyPanic, rec)
		}
	}()
	return s.Execute(ctx, dets, win)
}
