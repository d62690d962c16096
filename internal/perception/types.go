package perception

import (
	"image"
	"time"
)

// BBox is an axis-aligned bounding box in window-relative pixels.
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the box width.
func (b BBox) Width() int { return b.X2 - b.X1 }

// Height returns the box height.
func (b BBox) Height() int { return b.Y2 - b.Y1 }

// Point is a pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p offset by (dx, dy).
func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Detection is one labelled box from the detector.
type Detection struct {
	Box        BBox    `json:"bbox"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Center returns the integer midpoint of the bounding box.
func (d Detection) Center() Point {
	return Point{
		X: (d.Box.X1 + d.Box.X2) / 2,
		Y: (d.Box.Y1 + d.Box.Y2) / 2,
	}
}

// WindowInfo is the screen rectangle of the target window.
type WindowInfo struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewWindowInfo builds a WindowInfo from its origin and size.
func NewWindowInfo(left, top, width, height int) WindowInfo {
	return WindowInfo{
		Left:   left,
		Top:    top,
		Right:  left + width,
		Bottom: top + height,
		Width:  width,
		Height: height,
	}
}

// ToScreen converts a window-relative point to absolute screen coordinates.
func (w WindowInfo) ToScreen(p Point) Point {
	return Point{X: w.Left + p.X, Y: w.Top + p.Y}
}

// Fraction returns the window-relative point at (fx, fy) of the window size.
func (w WindowInfo) Fraction(fx, fy float64) Point {
	return Point{
		X: int(float64(w.Width) * fx),
		Y: int(float64(w.Height) * fy),
	}
}

// Frame is one capture of the target window.
//
// Image may be nil when the provider grabs pixels itself (the detector
// sidecar captures the region it is given).
type Frame struct {
	Window     WindowInfo
	Image      image.Image
	CapturedAt time.Time
}
