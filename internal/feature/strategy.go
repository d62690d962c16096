package feature

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/visionpilot/internal/clock"
	"github.com/nerrad567/visionpilot/internal/mode"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

// Strategy is one gated behaviour owned by a mode.
type Strategy interface {
	Type() Type
	Mode() mode.Mode
	Description() string
	Cooldown() time.Duration

	// CanExecute must require enabled, not cooling down, and applicable to dets.
	CanExecute(dets []perception.Detection, cfg mode.FeatureConfig) bool

	// Execute performs the behaviour and returns a requested transition or state.None.
	Execute(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (state.State, error)

	OnCooldown() bool
	LastExecution() time.Time
	MarkExecuted(at time.Time)
}

// Base implements the bookkeeping half of Strategy.
// Concrete strategies embed *Base and add CanExecute and Execute.
type Base struct {
	typ         Type
	mode        mode.Mode
	description string
	cooldown    time.Duration
	clock       clock.Clock

	mu   sync.Mutex
	last time.Time
}

// NewBase creates strategy bookkeeping.
func NewBase(t Type, m mode.Mode, cooldown time.Duration, description string, clk clock.Clock) *Base {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Base{
		typ:         t,
		mode:        m,
		description: description,
		cooldown:    cooldown,
		clock:       clk,
	}
}

// Type returns the strategy type.
func (b *Base) Type() Type { return b.typ }

// Mode returns the owning mode.
func (b *Base) Mode() mode.Mode { return b.mode }

// Description returns a human-readable summary.
func (b *Base) Description() string { return b.description }

// Cooldown returns the minimum interval between executions.
func (b *Base) Cooldown() time.Duration { return b.cooldown }

// Clock returns the strategy clock.
func (b *Base) Clock() clock.Clock { return b.clock }

// IsEnabled reports whether cfg switches the strategy on.
func (b *Base) IsEnabled(cfg mode.FeatureConfig) bool {
	return cfg.Enabled(string(b.typ))
}

// OnCooldown reports whether less than Cooldown has passed since the last execution.
func (b *Base) OnCooldown() bool {
	b.mu.Lock()
	last := b.last
	b.mu.Unlock()
	if last.IsZero() {
		return false
	}
	return b.clock.Now().Sub(last) < b.cooldown
}

// Ready is the common gate: enabled and not cooling down.
func (b *Base) Ready(cfg mode.FeatureConfig) bool {
	return b.IsEnabled(cfg) && !b.OnCooldown()
}

// LastExecution returns when the strategy last ran.
func (b *Base) LastExecution() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// MarkExecuted stamps the cooldown. Timestamps never move backwards.
func (b *Base) MarkExecuted(at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if at.After(b.last) {
		b.last = at
	}
}
