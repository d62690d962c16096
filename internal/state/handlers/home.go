package handlers

import (
	"context"
	"time"

	"github.com/nerrad567/visionpilot/internal/mode"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

const homeIdleWait = time.Second

// homeTriggers start a battle search when clicked.
var homeTriggers = []string{"attack_button", "attack"}

// Home is the home-village resting state. It runs the enabled home-village
// features and, when none of them moves on, clicks the attack trigger.
type Home struct {
	state.Base
	deps Deps
	sig  state.Signature
}

// NewHome creates the home handler.
func NewHome(deps Deps) *Home {
	deps = deps.withDefaults()
	h := &Home{
		Base: state.NewBase(state.Home),
		deps: deps,
		sig: state.Signature{
			AnyOf:  []string{"attack", "attack_button", "clan_capital_button", "barracks_button"},
			NoneOf: []string{"find_now", "surrender_button", "okay_button", "return_home"},
		},
	}
	h.MaxDuration = deps.stateConfig(state.Home).MaxDuration(state.DefaultMaxDuration)
	return h
}

// Signature returns the home signature.
func (h *Home) Signature() state.Signature { return h.sig }

// CanHandle reports whether the home village is on screen.
func (h *Home) CanHandle(dets []perception.Detection) bool { return h.sig.Matches(dets) }

// Execute runs mode features, then falls back to the attack trigger.
func (h *Home) Execute(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (state.State, error) {
	if next := runModeFeatures(ctx, h.deps, mode.HomeVillage, dets, win); next != state.None {
		return next, nil
	}

	trigger, ok := perception.BestOf(dets, homeTriggers...)
	if !ok {
		h.deps.pause(ctx, homeIdleWait)
		return state.None, nil
	}
	if err := h.deps.click(ctx, win, trigger); err != nil {
		return state.None, err
	}
	h.deps.Logger.Info("attack triggered", "class", trigger.Class)
	h.deps.settle(ctx)
	return state.Searching, nil
}

// runModeFeatures makes m current and runs its features.
func runModeFeatures(ctx context.Context, deps Deps, m mode.Mode, dets []perception.Detection, win perception.WindowInfo) state.State {
	if deps.Modes == nil {
		return state.None
	}
	if err := deps.Modes.SetMode(m); err != nil {
		deps.Logger.Error("setting mode failed", "mode", m, "error", err)
		return state.None
	}
	return deps.Modes.ExecuteCurrentModeFeatures(ctx, dets, win)
}
