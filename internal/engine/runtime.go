package engine

import (
	"fmt"

	"github.com/nerrad567/visionpilot/internal/actuator"
	"github.com/nerrad567/visionpilot/internal/clock"
	"github.com/nerrad567/visionpilot/internal/feature"
	"github.com/nerrad567/visionpilot/internal/feature/strategies"
	"github.com/nerrad567/visionpilot/internal/infrastructure/config"
	"github.com/nerrad567/visionpilot/internal/mode"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/state"
	"github.com/nerrad567/visionpilot/internal/state/handlers"
)

// Runtime holds the registries that outlive a single session.
type Runtime struct {
	Modes     *mode.Manager
	Features  *feature.Registry
	States    *state.Registry
	Validator *state.SignatureValidator
	Filter    *perception.Validator
}

// NewRuntime builds and wires the default strategies and handlers.
//
// Parameters:
//   - cfg: Loaded configuration
//   - act: Actuator used by strategies and handlers (actuator.DryRun in dry-run mode)
//   - clk: Clock for cooldowns, timeouts and settle delays
//   - logger: Logger handed to every registry (may be nil)
//
// Returns:
//   - *Runtime: Ready-to-run registries
//   - error: If configuration refers to unknown modes or states
func NewRuntime(cfg *config.Config, act actuator.Actuator, clk clock.Clock, logger Logger) (*Runtime, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	features := feature.NewRegistry(clk)
	features.SetLogger(logger)
	modes := mode.NewManager(features)
	modes.SetLogger(logger)
	if err := strategies.RegisterDefaults(features, strategies.Deps{Actuator: act, Clock: clk, Config: cfg, Settings: modes}); err != nil {
		return nil, fmt.Errorf("registering strategies: %w", err)
	}
	for name, settings := range cfg.Modes.Features {
		m, err := mode.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("modes.features: %w", err)
		}
		if err := modes.SetDefaults(m, featureConfig(m, settings)); err != nil {
			return nil, err
		}
	}
	if cfg.Modes.Initial != "" {
		m, err := mode.Parse(cfg.Modes.Initial)
		if err != nil {
			return nil, fmt.Errorf("modes.initial: %w", err)
		}
		_ = modes.SetMode(m)
	}

	states := state.NewRegistry()
	states.SetLogger(logger)
	if err := handlers.Register(states, handlers.Deps{
		Actuator: act,
		Clock:    clk,
		Config:   cfg,
		Modes:    modes,
		Logger:   logger,
	}); err != nil {
		return nil, err
	}

	validator, err := state.SignatureValidatorFromConfig(cfg.States, func(s state.State) int {
		return handlers.Priority(cfg, s)
	})
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Modes:     modes,
		Features:  features,
		States:    states,
		Validator: validator,
		Filter:    perception.ValidatorFromConfig(cfg.UIElements, cfg.Detection.ConfidenceThreshold),
	}, nil
}

// featureConfig converts configured settings, keeping the built-in switch
// where the file leaves enabled unset.
func featureConfig(m mode.Mode, settings map[string]config.FeatureSettingConfig) mode.FeatureConfig {
	base := mode.DefaultFeatureConfig(m)
	out := make(mode.FeatureConfig, len(settings))
	for name, s := range settings {
		enabled := base[name].Enabled
		if s.Enabled != nil {
			enabled = *s.Enabled
		}
		out[name] = mode.FeatureSettings{Enabled: enabled, Tunables: s.Tunables}
	}
	return out
}
