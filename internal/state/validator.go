package state

import (
	"fmt"
	"sort"

	"github.com/nerrad567/visionpilot/internal/infrastructure/config"
	"github.com/nerrad567/visionpilot/internal/perception"
)

// SignatureRule is an explicit, configured signature for one state.
type SignatureRule struct {
	State     State
	Priority  int
	Signature Signature
}

// SignatureValidator matches detections against configured state signatures.
// It runs before handler dispatch.
type SignatureValidator struct {
	rules []SignatureRule
}

// NewSignatureValidator orders rules by descending priority, then state name.
// Rules without positive evidence are dropped.
func NewSignatureValidator(rules []SignatureRule) *SignatureValidator {
	kept := make([]SignatureRule, 0, len(rules))
	for _, r := range rules {
		if !r.Signature.IsZero() {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Priority != kept[j].Priority {
			return kept[i].Priority > kept[j].Priority
		}
		return kept[i].State < kept[j].State
	})
	return &SignatureValidator{rules: kept}
}

// SignatureValidatorFromConfig builds rules from the states config blocks.
// priority supplies the default priority for states that do not set one.
func SignatureValidatorFromConfig(states map[string]config.StateConfig, priority func(State) int) (*SignatureValidator, error) {
	var rules []SignatureRule
	for name, sc := range states {
		if !sc.HasSignature() {
			continue
		}
		s, err := Parse(name)
		if err != nil {
			return nil, fmt.Errorf("states.%s: %w", name, err)
		}
		def := 0
		if priority != nil {
			def = priority(s)
		}
		rules = append(rules, SignatureRule{
			State:    s,
			Priority: sc.PriorityOr(def),
			Signature: Signature{
				AllOf:  sc.Indicators.Required,
				AnyOf:  sc.Indicators.Any,
				NoneOf: sc.Indicators.Forbidden,
			},
		})
	}
	return NewSignatureValidator(rules), nil
}

// FindMatchingState returns the first configured state whose signature matches.
func (v *SignatureValidator) FindMatchingState(dets []perception.Detection) (State, bool) {
	return v.FindMatchingStateIn(dets, ScopeAny)
}

// FindMatchingStateIn skips rules for states outside scope.
func (v *SignatureValidator) FindMatchingStateIn(dets []perception.Detection, scope Scope) (State, bool) {
	for _, r := range v.rules {
		if !r.State.In(scope) {
			continue
		}
		if r.Signature.Matches(dets) {
			return r.State, true
		}
	}
	return None, false
}

// Rules returns the rules in evaluation order.
func (v *SignatureValidator) Rules() []SignatureRule {
	out := make([]SignatureRule, len(v.rules))
	copy(out, v.rules)
	return out
}
