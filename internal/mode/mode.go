package mode

import "fmt"

// Mode is an operating context.
type Mode string

// None means no mode is set.
const None Mode = ""

// Declared modes.
const (
	HomeVillage Mode = "home_village"
	BuilderBase Mode = "builder_base"
)

var (
	declared     = []Mode{HomeVillage, BuilderBase}
	displayNames = map[Mode]string{
		HomeVillage: "Home Village",
		BuilderBase: "Builder Base",
	}
)

// All returns every declared mode.
func All() []Mode {
	out := make([]Mode, len(declared))
	copy(out, declared)
	return out
}

// Valid reports whether m is declared.
func (m Mode) Valid() bool {
	_, ok := displayNames[m]
	return ok
}

// DisplayName returns a human-readable name.
func (m Mode) DisplayName() string {
	if n, ok := displayNames[m]; ok {
		return n
	}
	return "Unset"
}

// String returns the mode name.
func (m Mode) String() string {
	if m == None {
		return "none"
	}
	return string(m)
}

// Parse converts a name into a Mode.
func Parse(name string) (Mode, error) {
	m := Mode(name)
	if !m.Valid() {
		return None, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
	return m, nil
}
