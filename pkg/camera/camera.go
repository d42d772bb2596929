// Package camera provides frame sources for the scan loop and describes the
// stream they come from, so the liveness engine can tell a real camera from a
// screen share or a file.
package camera

import (
	"context"
	"errors"
	"image"
	"time"
)

// Frame is a single decoded frame.
type Frame struct {
	Image     image.Image
	Timestamp time.Time
	Seq       int
}

// Width returns the frame width in pixels.
func (f Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels.
func (f Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// StreamInfo describes the active video source.
type StreamInfo struct {
	// Live is false for file playback or any source that is not a capture device.
	Live       bool    `json:"live"`
	Label      string  `json:"label"`
	DeviceID   string  `json:"device_id"`
	FacingMode string  `json:"facing_mode,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
}

// Source produces frames in capture order.
type Source interface {
	Open(ctx context.Context) error
	Read(ctx context.Context) (Frame, error)
	StreamInfo() (StreamInfo, error)
	Close() error
}

// ErrCameraNotFound is returned when the camera device is not found.
var ErrCameraNotFound = errors.New("camera device not found")

// ErrCameraNotOpen is returned when trying to read from a closed source.
var ErrCameraNotOpen = errors.New("camera not open")

// ErrNoFrame is returned when no frame could be captured.
var ErrNoFrame = errors.New("failed to capture frame")

// ErrEndOfStream is returned when a finite source is exhausted.
var ErrEndOfStream = errors.New("end of stream")
