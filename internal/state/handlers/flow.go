package handlers

import (
	"context"

	"github.com/nerrad567/visionpilot/internal/mode"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

// DefaultReturnPosition is the fallback return-home button location.
var DefaultReturnPosition = [2]float64{0.5, 0.7}

// clickTask clicks the best of classes and requests next.
func clickTask(deps Deps, name string, priority int, next state.State, classes ...string) state.Task {
	return state.Task{
		Name:        name,
		Description: "click " + classes[0],
		Priority:    priority,
		Condition: func(dets []perception.Detection) bool {
			return perception.HasAny(dets, classes...)
		},
		Action: func(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (state.State, error) {
			d, _ := perception.BestOf(dets, classes...)
			if err := deps.click(ctx, win, d); err != nil {
				return state.None, err
			}
			deps.settle(ctx)
			return next, nil
		},
	}
}

// fixedTask clicks a configured fractional position and requests next.
// It has no condition and serves as the last resort of a list.
func fixedTask(deps Deps, s state.State, name string, def [2]float64, next state.State) state.Task {
	return state.Task{
		Name:        "fixed_" + name,
		Description: "click fixed " + name + " position",
		Action: func(ctx context.Context, _ []perception.Detection, win perception.WindowInfo) (state.State, error) {
			if err := deps.clickFixed(ctx, win, s, name, def); err != nil {
				return state.None, err
			}
			deps.settle(ctx)
			return next, nil
		},
	}
}

func newFlow(deps Deps, s state.State, sig state.Signature) *state.TaskHandler {
	h := state.NewTaskHandler(s, sig)
	h.MaxDuration = deps.stateConfig(s).MaxDuration(state.DefaultMaxDuration)
	return h
}

// NewSurrendering confirms the surrender dialog.
func NewSurrendering(deps Deps) *state.TaskHandler {
	deps = deps.withDefaults()
	return newFlow(deps, state.Surrendering, state.Signature{AnyOf: []string{"surrender_confirm", "okay_button"}}).
		AddTask(clickTask(deps, "confirm_surrender", 10, state.Confirming, "surrender_confirm", "okay_button"))
}

// NewConfirming dismisses the battle result dialog.
func NewConfirming(deps Deps) *state.TaskHandler {
	deps = deps.withDefaults()
	return newFlow(deps, state.Confirming, state.Signature{AnyOf: []string{"okay", "okay_button"}}).
		AddTask(clickTask(deps, "acknowledge", 10, state.Returning, "okay", "okay_button"))
}

// NewReturning goes back to the village.
func NewReturning(deps Deps) *state.TaskHandler {
	deps = deps.withDefaults()
	return newFlow(deps, state.Returning, state.Signature{AnyOf: []string{"return_home", "return_village_button"}}).
		AddTask(clickTask(deps, "return_home", 10, state.Home, "return_home", "return_village_button")).
		AddTask(fixedTask(deps, state.Returning, "return", DefaultReturnPosition, state.Home))
}

// NewBBVillage is the builder-base resting state. It runs the enabled
// builder-base features and otherwise opens the attack menu.
func NewBBVillage(deps Deps) *state.TaskHandler {
	deps = deps.withDefaults()
	open := clickTask(deps, "open_attack_menu", 0, state.BBAttackMenu, "attack", "versus_battle_button")
	return newFlow(deps, state.BBVillage, state.Signature{
		AnyOf:  []string{"builder_hut", "versus_battle_button"},
		NoneOf: []string{"find_now", "surrender_button"},
	}).AddTask(state.Task{
		Name:        "village_features",
		Description: "run builder base features, then open the attack menu",
		Priority:    10,
		Action: func(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (state.State, error) {
			if next := runModeFeatures(ctx, deps, mode.BuilderBase, dets, win); next != state.None {
				return next, nil
			}
			if !open.Condition(dets) {
				return state.None, nil
			}
			return open.Action(ctx, dets, win)
		},
	})
}

// NewBBAttackMenu starts matchmaking from the attack menu.
func NewBBAttackMenu(deps Deps) *state.TaskHandler {
	deps = deps.withDefaults()
	return newFlow(deps, state.BBAttackMenu, state.Signature{
		AllOf:  []string{"find_now"},
		NoneOf: []string{"surrender_button", "okay", "return_home", "builder_hut"},
	}).AddTask(clickTask(deps, "find_now", 10, state.BBBattle, "find_now"))
}

// NewBBSurrender presses the surrender button once the battle has wound down.
func NewBBSurrender(deps Deps) *state.TaskHandler {
	deps = deps.withDefaults()
	return newFlow(deps, state.BBSurrender, state.Signature{
		AllOf:  []string{"surrender_button"},
		NoneOf: []string{"battle_timer", "enemy_base", "troop_panel"},
	}).AddTask(clickTask(deps, "surrender", 10, state.BBConfirm, "surrender_button"))
}

// NewBBConfirm confirms the builder-base surrender.
func NewBBConfirm(deps Deps) *state.TaskHandler {
	deps = deps.withDefaults()
	return newFlow(deps, state.BBConfirm, state.Signature{AllOf: []string{"okay"}}).
		AddTask(clickTask(deps, "confirm", 10, state.BBReturnHome, "okay"))
}

// NewBBReturnHome leaves the builder-base result screen.
func NewBBReturnHome(deps Deps) *state.TaskHandler {
	deps = deps.withDefaults()
	return newFlow(deps, state.BBReturnHome, state.Signature{
		AnyOf:  []string{"return_home", "battle_result_ui", "victory_defeat_text", "stars_earned"},
		NoneOf: []string{"find_now", "okay", "builder_hut"},
	}).
		AddTask(clickTask(deps, "return_home", 10, state.BBVillage, "return_home")).
		AddTask(fixedTask(deps, state.BBReturnHome, "return", DefaultReturnPosition, state.BBVillage))
}
