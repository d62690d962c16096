package state

import (
	"slices"

	"github.com/nerrad567/visionpilot/internal/perception"
)

// Signature describes the detection classes that identify a state.
//
//   - AllOf: every class must be present
//   - AnyOf: at least one class must be present (ignored when empty)
//   - NoneOf: no class may be present
//
// A signature with neither AllOf nor AnyOf matches nothing.
type Signature struct {
	AllOf  []string
	AnyOf  []string
	NoneOf []string
}

// IsZero reports whether the signature has no positive evidence.
func (s Signature) IsZero() bool {
	return len(s.AllOf) == 0 && len(s.AnyOf) == 0
}

// Matches reports whether dets satisfy the signature.
func (s Signature) Matches(dets []perception.Detection) bool {
	if s.IsZero() {
		return false
	}
	if !perception.HasAll(dets, s.AllOf...) {
		return false
	}
	if len(s.AnyOf) > 0 && !perception.HasAny(dets, s.AnyOf...) {
		return false
	}
	return !perception.HasAny(dets, s.NoneOf...)
}

// Overlaps reports whether a single detection set could satisfy both
// signatures at once.
func (s Signature) Overlaps(o Signature) bool {
	if !s.satisfiable() || !o.satisfiable() {
		return false
	}
	forbidden := append(slices.Clone(s.NoneOf), o.NoneOf...)

	// Required classes of one must not be forbidden by the other.
	for _, c := range s.AllOf {
		if slices.Contains(o.NoneOf, c) {
			return false
		}
	}
	for _, c := range o.AllOf {
		if slices.Contains(s.NoneOf, c) {
			return false
		}
	}

	// Each AnyOf needs one class that neither side forbids.
	return anyAllowed(s.AnyOf, forbidden) && anyAllowed(o.AnyOf, forbidden)
}

func (s Signature) satisfiable() bool {
	if s.IsZero() {
		return false
	}
	for _, c := range s.AllOf {
		if slices.Contains(s.NoneOf, c) {
			return false
		}
	}
	return anyAllowed(s.AnyOf, s.NoneOf)
}

func anyAllowed(anyOf, forbidden []string) bool {
	if len(anyOf) == 0 {
		return true
	}
	for _, c := range anyOf {
		if !slices.Contains(forbidden, c) {
			return true
		}
	}
	return false
}
