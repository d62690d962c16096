package strategies

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/visionpilot/internal/actuator"
	"github.com/nerrad567/visionpilot/internal/clock"
	"github.com/nerrad567/visionpilot/internal/feature"
	"github.com/nerrad567/visionpilot/internal/infrastructure/config"
	"github.com/nerrad567/visionpilot/internal/mode"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

// Default cooldowns.
const (
	CollectCooldown     = 10 * time.Second
	TrainCooldown       = 20 * time.Second
	UpgradeCooldown     = 30 * time.Second
	AttackCooldown      = 15 * time.Second
	ClanCapitalCooldown = 30 * time.Second
)

// DefaultMaxClicks caps collector clicks per execution.
const DefaultMaxClicks = 6

// collectPause separates consecutive collector clicks.
const collectPause = 500 * time.Millisecond

// Settings supplies the live feature configuration of a mode.
// *mode.Manager satisfies it.
type Settings interface {
	ModeConfig(m mode.Mode) (mode.FeatureConfig, error)
}

// Deps are the collaborators shared by all strategies.
type Deps struct {
	Actuator actuator.Actuator
	Clock    clock.Clock
	Config   *config.Config
	Settings Settings
}

// settle waits for the UI to react. Cancellation is picked up by the loop.
func (d Deps) settle(ctx context.Context) {
	_ = d.Clock.Sleep(ctx, config.Seconds(d.Config.Timing.ActionSettle))
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
	return d
}

// Collect clicks every visible resource collector.
type Collect struct {
	*feature.Base
	deps    Deps
	classes []string
}

// NewHVCollect creates the home-village collector strategy.
func NewHVCollect(deps Deps) *Collect {
	deps = deps.withDefaults()
	return &Collect{
		Base: feature.NewBase(feature.HVCollectResources, mode.HomeVillage, CollectCooldown,
			"Collect gold, elixir and dark elixir from home village collectors", deps.Clock),
		deps:    deps,
		classes: []string{"gold_collector", "elixir_collector", "dark_elixir_collector", "collect_gold", "collect_elixir"},
	}
}

// NewBBCollect creates the builder-base collector strategy.
func NewBBCollect(deps Deps) *Collect {
	deps = deps.withDefaults()
	return &Collect{
		Base: feature.NewBase(feature.BBCollectResources, mode.BuilderBase, CollectCooldown,
			"Collect builder base gold and elixir", deps.Clock),
		deps:    deps,
		classes: []string{"bb_gold_collector", "bb_elixir_collector", "collect_gold", "collect_elixir"},
	}
}

// CanExecute requires a visible collector.
func (s *Collect) CanExecute(dets []perception.Detection, cfg mode.FeatureConfig) bool {
	return s.Ready(cfg) && perception.HasAny(dets, s.classes...)
}

// MaxClicks reads the max_clicks tunable from the live mode configuration.
func (s *Collect) MaxClicks() int {
	if s.deps.Settings == nil {
		return DefaultMaxClicks
	}
	cfg, err := s.deps.Settings.ModeConfig(s.Mode())
	if err != nil {
		return DefaultMaxClicks
	}
	if n := cfg.Int(string(s.Type()), "max_clicks", DefaultMaxClicks); n > 0 {
		return n
	}
	return DefaultMaxClicks
}

// Execute clicks collectors class by class until max_clicks is reached.
func (s *Collect) Execute(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (state.State, error) {
	limit := s.MaxClicks()
	clicked := 0
	for _, class := range s.classes {
		for _, d := range perception.ByClass(dets, class) {
			if clicked >= limit {
				return state.None, nil
			}
			if err := actuator.ClickDetection(ctx, s.deps.Actuator, win, d); err != nil {
				return state.None, fmt.Errorf("collect %s: %w", class, err)
			}
			clicked++
			if s.deps.Clock.Sleep(ctx, collectPause) != nil {
				return state.None, nil
			}
		}
	}
	return state.None, nil
}

// ClickFirst clicks the best detection of its trigger classes and stays put.
// It serves the train, upgrade and clan capital features.
type ClickFirst struct {
	*feature.Base
	deps     Deps
	triggers []string
}

func newClickFirst(t feature.Type, m mode.Mode, cooldown time.Duration, desc string, deps Deps, triggers ...string) *ClickFirst {
	deps = deps.withDefaults()
	return &ClickFirst{
		Base:     feature.NewBase(t, m, cooldown, desc, deps.Clock),
		deps:     deps,
		triggers: triggers,
	}
}

// NewHVTrain creates the troop training strategy.
func NewHVTrain(deps Deps) *ClickFirst {
	return newClickFirst(feature.HVTrainTroops, mode.HomeVillage, TrainCooldown,
		"Open the barracks to queue troops", deps, "barracks_button")
}

// NewHVUpgrade creates the home-village upgrade strategy.
func NewHVUpgrade(deps Deps) *ClickFirst {
	return newClickFirst(feature.HVUpgradeBuildings, mode.HomeVillage, UpgradeCooldown,
		"Start an available home village upgrade", deps, "upgrade_available")
}

// NewBBUpgrade creates the builder-base upgrade strategy.
func NewBBUpgrade(deps Deps) *ClickFirst {
	return newClickFirst(feature.BBUpgradeBuildings, mode.BuilderBase, UpgradeCooldown,
		"Start an available builder base upgrade", deps, "bb_upgrade_available", "upgrade_available")
}

// NewHVClanCapital creates the clan capital strategy.
func NewHVClanCapital(deps Deps) *ClickFirst {
	return newClickFirst(feature.HVClanCapital, mode.HomeVillage, ClanCapitalCooldown,
		"Visit the clan capital", deps, "clan_capital_button")
}

// CanExecute requires one of the trigger classes.
func (s *ClickFirst) CanExecute(dets []perception.Detection, cfg mode.FeatureConfig) bool {
	return s.Ready(cfg) && perception.HasAny(dets, s.triggers...)
}

// Execute clicks the best trigger.
func (s *ClickFirst) Execute(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (state.State, error) {
	d, ok := perception.BestOf(dets, s.triggers...)
	if !ok {
		return state.None, nil
	}
	if err := actuator.ClickDetection(ctx, s.deps.Actuator, win, d); err != nil {
		return state.None, fmt.Errorf("click %s: %w", d.Class, err)
	}
	s.deps.settle(ctx)
	return state.None, nil
}

// HVAttack starts a home-village battle search.
type HVAttack struct {
	*feature.Base
	deps Deps
}

// NewHVAttack creates the home-village attack strategy.
func NewHVAttack(deps Deps) *HVAttack {
	deps = deps.withDefaults()
	return &HVAttack{
		Base: feature.NewBase(feature.HVAttack, mode.HomeVillage, AttackCooldown,
			"Start a home village attack and search for an opponent", deps.Clock),
		deps: deps,
	}
}

// CanExecute requires an attack button and, with check_army_ready, a full army.
func (s *HVAttack) CanExecute(dets []perception.Detection, cfg mode.FeatureConfig) bool {
	if !s.Ready(cfg) || !perception.HasAny(dets, "attack_button", "attack") {
		return false
	}
	if cfg.Bool(string(s.Type()), "check_army_ready", true) {
		return perception.Has(dets, "army_full_indicator")
	}
	return true
}

// Execute clicks the attack button and requests the search state.
func (s *HVAttack) Execute(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (state.State, error) {
	d, ok := perception.BestOf(dets, "attack_button", "attack")
	if !ok {
		return state.None, nil
	}
	if err := actuator.ClickDetection(ctx, s.deps.Actuator, win, d); err != nil {
		return state.None, fmt.Errorf("click attack: %w", err)
	}
	s.deps.settle(ctx)
	return state.Searching, nil
}

// DefaultAttackOffset places the builder-base attack button relative to find_now.
var DefaultAttackOffset = [2]int{0, -50}

// BBAttack opens the builder-base attack menu.
type BBAttack struct {
	*feature.Base
	deps Deps
}

// NewBBAttack creates the builder-base attack strategy.
func NewBBAttack(deps Deps) *BBAttack {
	deps = deps.withDefaults()
	return &BBAttack{
		Base: feature.NewBase(feature.BBAttack, mode.BuilderBase, AttackCooldown,
			"Open the builder base attack menu", deps.Clock),
		deps: deps,
	}
}

// CanExecute requires attack or find_now and, with check_army_ready, a ready army.
func (s *BBAttack) CanExecute(dets []perception.Detection, cfg mode.FeatureConfig) bool {
	if !s.Ready(cfg) || !perception.HasAny(dets, "attack", "find_now") {
		return false
	}
	if cfg.Bool(string(s.Type()), "check_army_ready", true) {
		return perception.HasAny(dets, "bb_army_ready", "army_full_indicator")
	}
	return true
}

// Execute clicks attack, or the point offset from find_now, and requests the attack menu.
func (s *BBAttack) Execute(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (state.State, error) {
	var target perception.Point
	if d, ok := perception.Best(dets, "attack"); ok {
		target = d.Center()
	} else if d, ok := perception.Best(dets, "find_now"); ok {
		off := s.deps.Config.State(string(state.BBVillage)).Relative("attack", DefaultAttackOffset)
		target = d.Center().Add(off[0], off[1])
	} else {
		return state.None, nil
	}

	if err := actuator.ClickWindowPoint(ctx, s.deps.Actuator, win, target); err != nil {
		return state.None, fmt.Errorf("click attack: %w", err)
	}
	s.deps.settle(ctx)
	return state.BBAttackMenu, nil
}

// RegisterDefaults registers every strategy and applies the execution
// order from configuration, falling back to the built-in order.
func RegisterDefaults(reg *feature.Registry, deps Deps) error {
	deps = deps.withDefaults()
	all := []feature.Strategy{
		NewHVCollect(deps),
		NewHVTrain(deps),
		NewHVUpgrade(deps),
		NewHVAttack(deps),
		NewHVClanCapital(deps),
		NewBBCollect(deps),
		NewBBUpgrade(deps),
		NewBBAttack(deps),
	}
	for _, s := range all {
		if err := reg.Register(s); err != nil {
			return fmt.Errorf("registering %s: %w", s.Type(), err)
		}
	}

	for _, m := range mode.All() {
		order := feature.DefaultOrder(m)
		if names, ok := deps.Config.Modes.Order[string(m)]; ok && len(names) > 0 {
			order = feature.ParseOrder(names)
		}
		reg.SetExecutionOrder(m, order)
	}
	return nil
}
