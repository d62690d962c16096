package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/visionpilot/internal/actuator"
	"github.com/nerrad567/visionpilot/internal/clock"
	"github.com/nerrad567/visionpilot/internal/infrastructure/config"
	"github.com/nerrad567/visionpilot/internal/mode"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

// ModeRunner is the slice of mode.Manager the resting-state handlers need.
type ModeRunner interface {
	SetMode(m mode.Mode) error
	ExecuteCurrentModeFeatures(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) state.State
}

// Logger is the logging interface used by the handlers.
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

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Actuator actuator.Actuator
	Clock    clock.Clock
	Config   *config.Config
	Modes    ModeRunner
	Logger   Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Config == nil {
		d.Config = config.Default()
	}
	if d.Actuator == nil {
		d.Actuator = actuator.NewDryRun()
	}
	if d.Logger == nil {
		d.Logger = noopLogger{}
	}
	return d
}

func (d Deps) stateConfig(s state.State) config.StateConfig {
	return d.Config.State(string(s))
}

// settle waits for the UI to react to an action. Cancellation is left to
// the controller, which polls the context once per iteration.
func (d Deps) settle(ctx context.Context) {
	d.pause(ctx, config.Seconds(d.Config.Timing.ActionSettle))
}

func (d Deps) pause(ctx context.Context, dur time.Duration) {
	_ = d.Clock.Sleep(ctx, dur)
}

func (d Deps) click(ctx context.Context, win perception.WindowInfo, det perception.Detection) error {
	if err := actuator.ClickDetection(ctx, d.Actuator, win, det); err != nil {
		return fmt.Errorf("click %s: %w", det.Class, err)
	}
	return nil
}

func (d Deps) clickFixed(ctx context.Context, win perception.WindowInfo, s state.State, name string, def [2]float64) error {
	pos := d.stateConfig(s).Fixed(name, def)
	if err := actuator.ClickFraction(ctx, d.Actuator, win, pos); err != nil {
		return fmt.Errorf("click %s.%s: %w", s, name, err)
	}
	return nil
}

// DefaultPriorities is the built-in dispatch priority table.
var DefaultPriorities = map[state.State]int{
	state.Error:        0,
	state.Home:         10,
	state.BBVillage:    15,
	state.Searching:    20,
	state.BBAttackMenu: 25,
	state.Engaged:      40,
	state.BBBattle:     45,
	state.Surrendering: 50,
	state.BBSurrender:  52,
	state.Confirming:   55,
	state.BBConfirm:    57,
	state.Returning:    60,
	state.BBReturnHome: 62,
}

// Priority returns the configured dispatch priority of s, falling back to
// DefaultPriorities.
func Priority(cfg *config.Config, s state.State) int {
	return cfg.State(string(s)).PriorityOr(DefaultPriorities[s])
}

// New builds every handler.
func New(deps Deps) []state.Handler {
	deps = deps.withDefaults()
	return []state.Handler{
		NewError(deps),
		NewHome(deps),
		NewSearching(deps),
		NewBattle(deps, EngagedProfile(deps.Config)),
		NewSurrendering(deps),
		NewConfirming(deps),
		NewReturning(deps),
		NewBBVillage(deps),
		NewBBAttackMenu(deps),
		NewBattle(deps, BBBattleProfile(deps.Config)),
		NewBBSurrender(deps),
		NewBBConfirm(deps),
		NewBBReturnHome(deps),
	}
}

// Register builds every handler and adds it to reg with its priority.
func Register(reg *state.Registry, deps Deps) error {
	deps = deps.withDefaults()
	for _, h := range New(deps) {
		if err := reg.Register(h, Priority(deps.Config, h.State())); err != nil {
			return fmt.Errorf("registering %s handler: %w", h.State(), err)
		}
	}
	return nil
}
