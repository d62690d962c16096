package perception

import "github.com/nerrad567/visionpilot/internal/infrastructure/config"

// Bounds constrains detections of one class. Zero values disable a bound.
type Bounds struct {
	MinWidth, MinHeight int
	MaxWidth, MaxHeight int
	MinConfidence       float64
}

// Validator drops detections below the global confidence floor or outside
// their class bounds. Classes without bounds pass on the floor alone.
type Validator struct {
	bounds map[string]Bounds
	floor  float64
}

// NewValidator creates a Validator from per-class bounds.
func NewValidator(bounds map[string]Bounds) *Validator {
	b := make(map[string]Bounds, len(bounds))
	for k, v := range bounds {
		b[k] = v
	}
	return &Validator{bounds: b}
}

// WithMinConfidence sets the confidence floor applied to every class and
// returns v.
func (v *Validator) WithMinConfidence(floor float64) *Validator {
	v.floor = floor
	return v
}

// ValidatorFromConfig builds a Validator from the ui_elements config block
// with minConfidence as the global floor.
func ValidatorFromConfig(elements map[string]config.ElementConfig, minConfidence float64) *Validator {
	bounds := make(map[string]Bounds, len(elements))
	for class, el := range elements {
		bounds[class] = Bounds{
			MinWidth:      el.MinSize[0],
			MinHeight:     el.MinSize[1],
			MaxWidth:      el.MaxSize[0],
			MaxHeight:     el.MaxSize[1],
			MinConfidence: el.MinConfidence,
		}
	}
	return &Validator{bounds: bounds, floor: minConfidence}
}

// Validate reports whether d satisfies its class bounds.
func (v *Validator) Validate(d Detection) bool {
	if d.Confidence < v.floor {
		return false
	}
	b, ok := v.bounds[d.Class]
	if !ok {
		return true
	}
	w, h := d.Box.Width(), d.Box.Height()
	switch {
	case d.Confidence < b.MinConfidence:
		return false
	case b.MinWidth > 0 && w < b.MinWidth, b.MinHeight > 0 && h < b.MinHeight:
		return false
	case b.MaxWidth > 0 && w > b.MaxWidth, b.MaxHeight > 0 && h > b.MaxHeight:
		return false
	}
	return true
}

// FilterValid returns the valid detections in input order.
// The input slice is not modified.
func (v *Validator) FilterValid(dets []Detection) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if v.Validate(d) {
			out = append(out, d)
		}
	}
	return out
}
