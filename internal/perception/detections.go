package perception

// ByClass returns the detections of the given class in input order.
func ByClass(dets []Detection, class string) []Detection {
	var out []Detection
	for _, d := range dets {
		if d.Class == class {
			out = append(out, d)
		}
	}
	return out
}

// Best returns the highest-confidence detection of the class.
// Ties keep the earliest detection.
func Best(dets []Detection, class string) (Detection, bool) {
	var (
		best  Detection
		found bool
	)
	for _, d := range dets {
		if d.Class != class {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}
	return best, found
}

// BestOf returns the best detection of the first class in classes that is present.
func BestOf(dets []Detection, classes ...string) (Detection, bool) {
	for _, c := range classes {
		if d, ok := Best(dets, c); ok {
			return d, true
		}
	}
	return Detection{}, false
}

// Has reports whether a detection of class is present.
func Has(dets []Detection, class string) bool {
	for _, d := range dets {
		if d.Class == class {
			return true
		}
	}
	return false
}

// HasAny reports whether any of the classes is present.
func HasAny(dets []Detection, classes ...string) bool {
	for _, c := range classes {
		if Has(dets, c) {
			return true
		}
	}
	return false
}

// HasAll reports whether every class is present. An empty list is trivially satisfied.
func HasAll(dets []Detection, classes ...string) bool {
	for _, c := range classes {
		if !Has(dets, c) {
			return false
		}
	}
	return true
}

// Classes returns the set of classes present.
func Classes(dets []Detection) map[string]struct{} {
	out := make(map[string]struct{}, len(dets))
	for _, d := range dets {
		out[d.Class] = struct{}{}
	}
	return out
}
