package mode

import "github.com/nerrad567/visionpilot/internal/perception"

// Rule maps marker classes to a mode. A rule fires when any of AnyOf is
// present and none of NoneOf is.
type Rule struct {
	Mode   Mode
	AnyOf  []string
	NoneOf []string
}

// DefaultRules returns the built-in ordered signature rules.
func DefaultRules() []Rule {
	return []Rule{
		{Mode: BuilderBase, AnyOf: []string{"find_now"}},
		{Mode: HomeVillage, AnyOf: []string{"clan_capital_button"}},
		{Mode: HomeVillage, AnyOf: []string{"attack_button", "attack"}, NoneOf: []string{"find_now"}},
	}
}

// DetectMode returns the mode of the first rule that fires.
// ok is false when no rule fires; callers keep the prior mode.
func DetectMode(rules []Rule, dets []perception.Detection) (m Mode, ok bool) {
	for _, r := range rules {
		if perception.HasAny(dets, r.AnyOf...) && !perception.HasAny(dets, r.NoneOf...) {
			return r.Mode, true
		}
	}
	return None, false
}
