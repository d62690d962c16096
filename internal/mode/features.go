package mode

import (
	"maps"
	"sort"
	"strconv"
)

// FeatureSettings is one feature's switch and tunables.
type FeatureSettings struct {
	Enabled  bool           `json:"enabled"`
	Tunables map[string]any `json:"tunables,omitempty"`
}

// FeatureConfig maps feature name to settings for one mode.
type FeatureConfig map[string]FeatureSettings

// Enabled reports whether the named feature is switched on.
// Unknown features are off.
func (c FeatureConfig) Enabled(name string) bool {
	return c[name].Enabled
}

// Bool returns a boolean tunable or def.
func (c FeatureConfig) Bool(name, key string, def bool) bool {
	switch v := c[name].Tunables[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Int returns an integer tunable or def.
func (c FeatureConfig) Int(name, key string, def int) int {
	switch v := c[name].Tunables[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Float returns a numeric tunable or def.
func (c FeatureConfig) Float(name, key string, def float64) float64 {
	switch v := c[name].Tunables[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Clone returns a deep copy.
func (c FeatureConfig) Clone() FeatureConfig {
	out := make(FeatureConfig, len(c))
	for k, v := range c {
		out[k] = FeatureSettings{Enabled: v.Enabled, Tunables: maps.Clone(v.Tunables)}
	}
	return out
}

// EnabledFeatures returns the enabled feature names, sorted.
func (c FeatureConfig) EnabledFeatures() []string {
	var out []string
	for k, v := range c {
		if v.Enabled {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Merge overlays updates onto c. Tunables are merged key by key.
func (c FeatureConfig) Merge(updates FeatureConfig) FeatureConfig {
	out := c.Clone()
	for name, u := range updates {
		cur := out[name]
		cur.Enabled = u.Enabled
		if len(u.Tunables) > 0 {
			if cur.Tunables == nil {
				cur.Tunables = make(map[string]any, len(u.Tunables))
			}
			maps.Copy(cur.Tunables, u.Tunables)
		}
		out[name] = cur
	}
	return out
}

// FeatureUpdate is a partial change to one feature. A nil Enabled keeps
// the current switch.
type FeatureUpdate struct {
	Enabled  *bool          `json:"enabled,omitempty"`
	Tunables map[string]any `json:"tunables,omitempty"`
}

// FeatureUpdates maps feature name to a partial change.
type FeatureUpdates map[string]FeatureUpdate

// Apply overlays partial updates onto c. Only fields present in an update
// change; tunables are merged key by key.
func (c FeatureConfig) Apply(updates FeatureUpdates) FeatureConfig {
	out := c.Clone()
	for name, u := range updates {
		cur := out[name]
		if u.Enabled != nil {
			cur.Enabled = *u.Enabled
		}
		if len(u.Tunables) > 0 {
			if cur.Tunables == nil {
				cur.Tunables = make(map[string]any, len(u.Tunables))
			}
			maps.Copy(cur.Tunables, u.Tunables)
		}
		out[name] = cur
	}
	return out
}

// DefaultFeatureConfig returns the built-in settings for m.
func DefaultFeatureConfig(m Mode) FeatureConfig {
	switch m {
	case HomeVillage:
		return FeatureConfig{
			"hv_collect_resources": {Enabled: true},
			"hv_attack":            {Enabled: true, Tunables: map[string]any{"check_army_ready": true}},
			"hv_clan_capital":      {Enabled: false},
			"hv_train_troops":      {Enabled: false},
			"hv_upgrade_buildings": {Enabled: false},
		}
	case BuilderBase:
		return FeatureConfig{
			"bb_collect_resources": {Enabled: true},
			"bb_attack":            {Enabled: true, Tunables: map[string]any{"check_army_ready": true}},
			"bb_upgrade_buildings": {Enabled: false},
		}
	}
	return FeatureConfig{}
}
