// Package landmark provides face-mesh landmark providers for the liveness
// engine: a sidecar process running the mesh model, a replay of recorded
// landmarks, and a fixed set for demos.
package landmark

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/MrCodeEU/livegate/pkg/face"
)

// Provider runs a landmark model over frames.
type Provider interface {
	Load(ctx context.Context) error
	Loaded() bool
	Detect(ctx context.Context, img image.Image, ts time.Time) (face.Landmarks, error)
	Close() error
}

// ErrModelNotLoaded is returned by Detect before Load has succeeded.
var ErrModelNotLoaded = errors.New("landmark model not loaded")

// ErrWorkerClosed is returned when the sidecar process is gone.
var ErrWorkerClosed = errors.New("landmark worker closed")

// ErrWorkerFailed wraps an error reported by the sidecar.
var ErrWorkerFailed = errors.New("landmark worker error")

// ErrReplayExhausted is returned when a replay has no more records.
var ErrReplayExhausted = errors.New("landmark replay exhausted")

// Static returns the same landmarks for every frame.
type Static struct {
	Points face.Landmarks
}

// NewStatic returns a Static provider.
func NewStatic(points face.Landmarks) *Static {
	return &Static{Points: points}
}

func (s *Static) Load(ctx context.Context) error { return nil }

func (s *Static) Loaded() bool { return true }

func (s *Static) Detect(ctx context.Context, img image.Image, ts time.Time) (face.Landmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Points, nil
}

func (s *Static) Close() error { return nil }
