package state

import "fmt"

// State identifies one control state.
type State string

// None means "no transition requested".
const None State = ""

// Control states.
const (
	Home         State = "home"
	Searching    State = "searching"
	Engaged      State = "engaged"
	Surrendering State = "surrendering"
	Confirming   State = "confirming"
	Returning    State = "returning"
	Error        State = "error"
)

// Builder-base battle flow sub-states.
const (
	BBVillage    State = "bb_village"
	BBAttackMenu State = "bb_attack_menu"
	BBBattle     State = "bb_battle"
	BBSurrender  State = "bb_surrender"
	BBConfirm    State = "bb_confirm"
	BBReturnHome State = "bb_return_home"
)

var all = []State{
	Home, Searching, Engaged, Surrendering, Confirming, Returning, Error,
	BBVillage, BBAttackMenu, BBBattle, BBSurrender, BBConfirm, BBReturnHome,
}

// All returns every declared state in declaration order.
func All() []State {
	out := make([]State, len(all))
	copy(out, all)
	return out
}

// Valid reports whether s is a declared state.
func (s State) Valid() bool {
	for _, v := range all {
		if v == s {
			return true
		}
	}
	return false
}

// String returns the state name.
func (s State) String() string {
	if s == None {
		return "none"
	}
	return string(s)
}

// Parse converts a name into a State.
func Parse(name string) (State, error) {
	s := State(name)
	if !s.Valid() {
		return None, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	return s, nil
}

// Scope names the operating context a state belongs to. Its values match
// the mode names so callers can convert a mode directly.
type Scope string

// ScopeAny marks states reachable from every context, and as a filter it
// disables scoping.
const ScopeAny Scope = ""

// Context scopes.
const (
	ScopeHomeVillage Scope = "home_village"
	ScopeBuilderBase Scope = "builder_base"
)

// Scope returns the context that owns s. The error state belongs to none.
func (s State) Scope() Scope {
	switch s {
	case Home, Searching, Engaged, Surrendering, Confirming, Returning:
		return ScopeHomeVillage
	case BBVillage, BBAttackMenu, BBBattle, BBSurrender, BBConfirm, BBReturnHome:
		return ScopeBuilderBase
	}
	return ScopeAny
}

// In reports whether s may be entered while scope is active. Unscoped
// states and an unscoped filter always match.
func (s State) In(scope Scope) bool {
	own := s.Scope()
	return scope == ScopeAny || own == ScopeAny || own == scope
}

// IsHome reports whether s is a resting state of either context.
func (s State) IsHome() bool {
	return s == Home || s == BBVillage
}

// IsReturn reports whether s is the final step of a battle round trip.
func (s State) IsReturn() bool {
	return s == Returning || s == BBReturnHome
}

// CompletesCycle reports whether moving from prev to next finishes one battle cycle.
func CompletesCycle(prev, next State) bool {
	return prev.IsReturn() && next.IsHome()
}
