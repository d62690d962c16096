package handlers

import (
	"context"
	"time"

	"github.com/nerrad567/visionpilot/internal/actuator"
	"github.com/nerrad567/visionpilot/internal/infrastructure/config"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
)

// DefaultSurrenderPosition is the fallback surrender button location.
var DefaultSurrenderPosition = [2]float64{0.9, 0.1}

// DefaultDeployZones are the home-village deployment points.
var DefaultDeployZones = [][2]float64{
	{0.3, 0.7}, {0.5, 0.8}, {0.7, 0.7}, {0.2, 0.5}, {0.8, 0.5},
}

// DefaultBBDeployZones are the builder-base deployment points.
var DefaultBBDeployZones = [][2]float64{
	{0.2, 0.8}, {0.5, 0.85}, {0.8, 0.8}, {0.15, 0.6}, {0.85, 0.6}, {0.3, 0.7}, {0.7, 0.7},
}

const (
	heroSelectPause = 300 * time.Millisecond
	deployPause     = 200 * time.Millisecond
)

// BattleProfile parameterises a Battle handler.
type BattleProfile struct {
	State     state.State
	Signature state.Signature

	MaxTroops      int
	DeployInterval time.Duration
	Zones          [][2]float64

	// Hero, when set, is selected and placed at HeroZone before any troop.
	Hero     string
	HeroZone [2]float64

	// MinTroops allows an early surrender once the surrender button is
	// visible and this many troops are out. Zero disables it.
	MinTroops int

	// MaxBattle bounds the battle. It also serves as the handler timeout.
	MaxBattle time.Duration

	// IdleLimit surrenders when nothing was deployed for this long.
	IdleLimit time.Duration

	// ClickSurrender presses the surrender button (or the fixed surrender
	// position) before moving on. Otherwise the handler waits until the
	// button is visible and leaves the click to the next state.
	ClickSurrender bool

	Next state.State
}

// EngagedProfile returns the home-village battle profile.
func EngagedProfile(cfg *config.Config) BattleProfile {
	sc := cfg.State(string(state.Engaged))
	return BattleProfile{
		State: state.Engaged,
		Signature: state.Signature{
			AnyOf: []string{"enemy_base", "troop_panel", "battle_timer", "surrender_button"},
		},
		MaxTroops:      int(sc.Tunable("max_troops", 10)),
		DeployInterval: config.Seconds(sc.Tunable("deploy_interval", 0.8)),
		Zones:          sc.Zones(DefaultDeployZones),
		MaxBattle:      sc.MaxDuration(45 * time.Second),
		IdleLimit:      config.Seconds(sc.Tunable("idle_limit", 15)),
		ClickSurrender: true,
		Next:           state.Surrendering,
	}
}

// BBBattleProfile returns the builder-base battle profile.
func BBBattleProfile(cfg *config.Config) BattleProfile {
	sc := cfg.State(string(state.BBBattle))
	return BattleProfile{
		State: state.BBBattle,
		Signature: state.Signature{
			AnyOf:  []string{"battle_machine", "battle_timer", "opponent_base", "surrender_button"},
			NoneOf: []string{"enemy_base", "troop_panel", "find_now", "okay", "return_home"},
		},
		MaxTroops:      int(sc.Tunable("max_troops", 18)),
		DeployInterval: config.Seconds(sc.Tunable("deploy_interval", 0.6)),
		Zones:          sc.Zones(DefaultBBDeployZones),
		Hero:           "battle_machine",
		HeroZone:       sc.Fixed("battle_machine", [2]float64{0.3, 0.8}),
		MinTroops:      int(sc.Tunable("min_troops_before_surrender", 12)),
		MaxBattle:      sc.MaxDuration(45 * time.Second),
		IdleLimit:      config.Seconds(sc.Tunable("idle_limit", 20)),
		Next:           state.BBSurrender,
	}
}

// Battle deploys troops at zone points until the profile says to surrender.
type Battle struct {
	state.Base
	deps    Deps
	profile BattleProfile

	deployed     int
	heroDeployed bool
	lastDeploy   time.Time
	zone         int
}

// NewBattle creates a battle handler for p.
func NewBattle(deps Deps, p BattleProfile) *Battle {
	deps = deps.withDefaults()
	if len(p.Zones) == 0 {
		p.Zones = DefaultDeployZones
	}
	h := &Battle{Base: state.NewBase(p.State), deps: deps, profile: p}
	h.MaxDuration = p.MaxBattle
	return h
}

// Enter resets the deploy counters.
func (h *Battle) Enter(now time.Time) {
	h.Base.Enter(now)
	h.deployed = 0
	h.heroDeployed = false
	h.lastDeploy = now
	h.zone = 0
}

// Deployed returns the number of troops placed since entering the state.
func (h *Battle) Deployed() int { return h.deployed }

// Profile returns the battle parameters.
func (h *Battle) Profile() BattleProfile { return h.profile }

// Signature returns the battle signature.
func (h *Battle) Signature() state.Signature { return h.profile.Signature }

// CanHandle reports whether a battle screen is visible.
func (h *Battle) CanHandle(dets []perception.Detection) bool {
	return h.profile.Signature.Matches(dets)
}

// Execute deploys one unit or surrenders.
func (h *Battle) Execute(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (state.State, error) {
	now := h.deps.Clock.Now()
	if h.EnteredAt().IsZero() {
		h.Enter(now)
	}

	if h.shouldSurrender(now, dets) {
		return h.surrender(ctx, dets, win)
	}

	if h.profile.Hero != "" && !h.heroDeployed {
		if hero, ok := perception.Best(dets, h.profile.Hero); ok {
			return state.None, h.deployHero(ctx, win, hero)
		}
	}

	if h.deployed < h.profile.MaxTroops && now.Sub(h.lastDeploy) >= h.profile.DeployInterval {
		return state.None, h.deployTroop(ctx, win)
	}
	return state.None, nil
}

func (h *Battle) shouldSurrender(now time.Time, dets []perception.Detection) bool {
	p := h.profile
	switch {
	case h.deployed >= p.MaxTroops:
		return true
	case h.TimedOut(now):
		return true
	case p.IdleLimit > 0 && now.Sub(h.lastDeploy) > p.IdleLimit:
		return true
	case p.MinTroops > 0 && h.deployed >= p.MinTroops && perception.Has(dets, "surrender_button"):
		return true
	}
	return false
}

func (h *Battle) surrender(ctx context.Context, dets []perception.Detection, win perception.WindowInfo) (state.State, error) {
	button, visible := perception.Best(dets, "surrender_button")
	if !h.profile.ClickSurrender {
		if !visible {
			h.deps.Logger.Debug("surrender due, waiting for button", "state", h.State())
			return state.None, nil
		}
		return h.profile.Next, nil
	}

	var err error
	if visible {
		err = h.deps.click(ctx, win, button)
	} else {
		err = h.deps.clickFixed(ctx, win, h.State(), "surrender", DefaultSurrenderPosition)
	}
	if err != nil {
		return state.None, err
	}
	h.deps.Logger.Info("surrendering", "state", h.State(), "deployed", h.deployed)
	h.deps.settle(ctx)
	return h.profile.Next, nil
}

func (h *Battle) deployHero(ctx context.Context, win perception.WindowInfo, hero perception.Detection) error {
	if err := h.deps.click(ctx, win, hero); err != nil {
		return err
	}
	h.deps.pause(ctx, heroSelectPause)
	if err := actuator.ClickFraction(ctx, h.deps.Actuator, win, h.profile.HeroZone); err != nil {
		return err
	}
	h.heroDeployed = true
	h.lastDeploy = h.deps.Clock.Now()
	h.deps.Logger.Info("hero deployed", "class", hero.Class)
	return nil
}

func (h *Battle) deployTroop(ctx context.Context, win perception.WindowInfo) error {
	zone := h.profile.Zones[h.zone%len(h.profile.Zones)]
	h.zone++
	if err := actuator.ClickFraction(ctx, h.deps.Actuator, win, zone); err != nil {
		return err
	}
	h.deployed++
	h.lastDeploy = h.deps.Clock.Now()
	h.deps.Logger.Debug("troop deployed", "state", h.State(), "count", h.deployed, "zone", zone)
	h.deps.pause(ctx, deployPause)
	return nil
}
