package handlers

import (
	"context"
	"time"

	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

// Searching handler defaults.
const (
	SearchingMaxDuration = 30 * time.Second
	searchingWait        = 2 * time.Second
)

// battleReadyClasses show that an opponent was found.
var battleReadyClasses = []string{"enemy_base", "troop_panel", "deploy_area", "battle_ui"}

// Searching waits for matchmaking. A stuck search is cancelled and
// restarted a bounded number of times before the handler-local timeout
// sends the loop home.
type Searching struct {
	state.Base
	deps Deps
	sig  state.Signature
}

// NewSearching creates the searching handler.
func NewSearching(deps Deps) *Searching {
	deps = deps.withDefaults()
	h := &Searching{
		Base: state.NewBase(state.Searching),
		deps: deps,
		sig:  state.Signature{AnyOf: []string{"searching_text", "cancel_button", "loading_spinner"}},
	}
	h.MaxDuration = deps.stateConfig(state.Searching).MaxDuration(SearchingMaxDuration)
	return h
}

// Signature returns the searching signature.
func (h *Searching) Signature() state.Signature { return h.sig }

// CanHandle reports whether a matchmaking screen is visible.
func (h *Searching) CanHandle(dets []perception.Detection) bool { return h.sig.Matches(dets) }

// Execute advances to the battle, retries a stuck search, or gives up.
func (h *Searching) Execute(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (state.State, error) {
	if h.TimedOut(h.deps.Clock.Now()) {
		h.deps.Logger.Warn("search timed out", "max_duration", h.MaxDuration)
		return state.Home, nil
	}

	if perception.HasAny(dets, battleReadyClasses...) {
		return state.Engaged, nil
	}

	if cancel, ok := perception.Best(dets, "cancel_button"); ok && h.RetryCount() < h.MaxRetries {
		h.IncrementRetryCount()
		h.deps.Logger.Info("restarting search", "retry", h.RetryCount())
		if err := h.deps.click(ctx, win, cancel); err != nil {
			return state.None, err
		}
		h.deps.pause(ctx, time.Second)
		if attack, ok := perception.BestOf(dets, homeTriggers...); ok {
			if err := h.deps.click(ctx, win, attack); err != nil {
				return state.None, err
			}
		}
		return state.None, nil
	}

	h.deps.pause(ctx, searchingWait)
	return state.None, nil
}
