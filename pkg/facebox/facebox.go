// Package facebox finds the face bounding box that the liveness engine
// crops around.
package facebox

import (
	"context"
	"errors"
	"image"

	"github.com/MrCodeEU/livegate/pkg/face"
)

// Detector returns the most prominent face in a frame.
type Detector interface {
	// Detect reports false when there is no face.
	Detect(ctx context.Context, img image.Image) (face.Box, bool, error)
	Close() error
}

// ErrModelNotLoaded is returned when the detector model is missing.
var ErrModelNotLoaded = errors.New("face detector model not loaded")

// largest returns the index of the box with the biggest area, or -1.
func largest(boxes []face.Box) int {
	best, bestArea := -1, 0.0
	for i, b := range boxes {
		if area := b.Width * b.Height; area > bestArea {
			best, bestArea = i, area
		}
	}
	return best
}
