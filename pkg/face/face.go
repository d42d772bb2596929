// Package face holds the geometry shared by the detectors and the liveness
// engine: pixel-space face boxes and normalized landmark points.
package face

import (
	"image"
	"math"
)

// Face mesh landmark indices (468-point MediaPipe topology).
const (
	NoseTip          = 4
	Chin             = 175
	LeftEyeOuter     = 33
	RightEyeOuter    = 263
	LeftMouthCorner  = 61
	RightMouthCorner = 291

	// MeshSize is the number of points in a full face mesh.
	MeshSize = 468
)

// LeftEye and RightEye are the six EAR points per eye: two corners,
// two upper-lid points and two lower-lid points, in EAR order.
var (
	LeftEye  = [6]int{33, 160, 158, 133, 153, 144}
	RightEye = [6]int{362, 385, 387, 263, 373, 380}
)

// KeyPoints are the rigid points used for frame-to-frame displacement.
var KeyPoints = [5]int{LeftEyeOuter, RightEyeOuter, NoseTip, LeftMouthCorner, RightMouthCorner}

// Point is a landmark in normalized [0,1] frame coordinates.
type Point struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility,omitempty"`
	Presence   float64 `json:"presence,omitempty"`
}

// Distance returns the 2D Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Landmarks is one ordered face mesh.
type Landmarks []Point

// Has reports whether every index is present in the mesh.
func (l Landmarks) Has(idx ...int) bool {
	for _, i := range idx {
		if i < 0 || i >= len(l) {
			return false
		}
	}
	return true
}

// Box is an axis-aligned face bounding box in pixel space.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Center returns the box center.
func (b Box) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Pad grows the box by frac of its size on every side.
func (b Box) Pad(frac float64) Box {
	px, py := b.Width*frac, b.Height*frac
	return Box{X: b.X - px, Y: b.Y - py, Width: b.Width + 2*px, Height: b.Height + 2*py}
}

// Rect converts the box to an integer rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(
		int(math.Floor(b.X)),
		int(math.Floor(b.Y)),
		int(math.Ceil(b.X+b.Width)),
		int(math.Ceil(b.Y+b.Height)),
	)
}

// BoxFromRect converts an integer rectangle to a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())}
}
