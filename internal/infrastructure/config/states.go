package config

import (
	"fmt"
	"time"
)

// StateConfig is the per-state configuration block.
//
// Every field is optional. Accessors take the caller's default so that an
// absent key never produces an error.
type StateConfig struct {
	// Priority overrides the state's dispatch priority. Higher wins.
	Priority *int `yaml:"priority,omitempty"`

	Indicators        IndicatorConfig       `yaml:"indicators"`
	Timing            StateTimingConfig     `yaml:"timing"`
	RelativePositions map[string][2]int     `yaml:"relative_positions"`
	FixedPositions    map[string][2]float64 `yaml:"fixed_positions"`
	Deployment        DeploymentConfig      `yaml:"deployment"`

	// Tunables holds handler-specific numeric knobs such as max_troops.
	Tunables map[string]float64 `yaml:"tunables"`
}

// IndicatorConfig describes the detection classes that identify a state.
type IndicatorConfig struct {
	// Required classes must all be present.
	Required []string `yaml:"required"`
	// Any lists classes of which at least one must be present.
	Any []string `yaml:"any"`
	// Forbidden classes must all be absent.
	Forbidden []string `yaml:"forbidden"`
}

// StateTimingConfig contains per-state timing, in seconds.
type StateTimingConfig struct {
	MaxDuration float64 `yaml:"max_duration"`
}

// DeploymentConfig lists unit deployment zones.
type DeploymentConfig struct {
	Zones []ZoneConfig `yaml:"zones"`
}

// ZoneConfig is a deployment point as fractions of the window size.
type ZoneConfig struct {
	Position [2]float64 `yaml:"position"`
}

// PriorityOr returns the configured priority or def.
func (s StateConfig) PriorityOr(def int) int {
	if s.Priority == nil {
		return def
	}
	return *s.Priority
}

// MaxDuration returns the configured timeout or def.
func (s StateConfig) MaxDuration(def time.Duration) time.Duration {
	if s.Timing.MaxDuration <= 0 {
		return def
	}
	return Seconds(s.Timing.MaxDuration)
}

// Relative returns a named pixel offset or def.
func (s StateConfig) Relative(name string, def [2]int) [2]int {
	if v, ok := s.RelativePositions[name]; ok {
		return v
	}
	return def
}

// Fixed returns a named fractional window position or def.
func (s StateConfig) Fixed(name string, def [2]float64) [2]float64 {
	if v, ok := s.FixedPositions[name]; ok {
		return v
	}
	return def
}

// Zones returns the configured deployment zones or def.
func (s StateConfig) Zones(def [][2]float64) [][2]float64 {
	if len(s.Deployment.Zones) == 0 {
		return def
	}
	out := make([][2]float64, 0, len(s.Deployment.Zones))
	for _, z := range s.Deployment.Zones {
		out = append(out, z.Position)
	}
	return out
}

// Tunable returns a named handler knob or def.
func (s StateConfig) Tunable(name string, def float64) float64 {
	if v, ok := s.Tunables[name]; ok {
		return v
	}
	return def
}

// HasSignature reports whether the block declares an explicit state signature.
func (s StateConfig) HasSignature() bool {
	return len(s.Indicators.Required) > 0 || len(s.Indicators.Any) > 0
}

func (s StateConfig) validate(name string) []string {
	var errs []string
	if s.Priority != nil && *s.Priority < 0 {
		errs = append(errs, fmt.Sprintf("states.%s.priority must not be negative", name))
	}
	if s.Timing.MaxDuration < 0 {
		errs = append(errs, fmt.Sprintf("states.%s.timing.max_duration must not be negative", name))
	}
	for key, p := range s.FixedPositions {
		if !isFraction(p[0]) || !isFraction(p[1]) {
			errs = append(errs, fmt.Sprintf("states.%s.fixed_positions.%s must be fractions in [0,1]", name, key))
		}
	}
	for i, z := range s.Deployment.Zones {
		if !isFraction(z.Position[0]) || !isFraction(z.Position[1]) {
			errs = append(errs, fmt.Sprintf("states.%s.deployment.zones[%d] must be fractions in [0,1]", name, i))
		}
	}
	return errs
}

func isFraction(f float64) bool {
	return f >= 0 && f <= 1
}
