// Package webcam captures frames from a V4L2 or platform camera through
// OpenCV.
package webcam

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/MrCodeEU/livegate/pkg/camera"
	"github.com/MrCodeEU/livegate/pkg/logging"
)

// Config holds capture settings.
type Config struct {
	Device string
	Width  int
	Height int
	FPS    int
	// Label overrides the reported stream label. Defaults to the device path.
	Label string
	// FacingMode is reported as-is; a non-empty value marks the stream as a
	// mobile-style camera.
	FacingMode string
}

// Camera is a gocv-backed camera.Source.
type Camera struct {
	cfg Config

	mu      sync.Mutex
	capture *gocv.VideoCapture
	seq     int
}

// New creates a webcam source. Nothing is opened until Open.
func New(cfg Config) *Camera {
	return &Camera{cfg: cfg}
}

// deviceID turns "/dev/video2" or "2" into the numeric index OpenCV expects.
// Anything else (a URL or a file) is passed through.
func deviceID(device string) interface{} {
	if n, err := strconv.Atoi(device); err == nil {
		return n
	}
	if idx := strings.TrimPrefix(device, "/dev/video"); idx != device {
		if n, err := strconv.Atoi(idx); err == nil {
			return n
		}
	}
	return device
}

// Open starts capture.
func (c *Camera) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}
	if strings.HasPrefix(c.cfg.Device, "/dev/") {
		if _, err := os.Stat(c.cfg.Device); os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", camera.ErrCameraNotFound, c.cfg.Device)
		}
	}

	vc, err := gocv.OpenVideoCapture(deviceID(c.cfg.Device))
	if err != nil {
		return fmt.Errorf("failed to open camera %s: %w", c.cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("%w: %s", camera.ErrCameraNotFound, c.cfg.Device)
	}

	if c.cfg.Width > 0 && c.cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	}
	if c.cfg.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(c.cfg.FPS))
	}

	c.capture = vc
	c.seq = 0
	logging.Component("camera").Infof("Opened %s", c.cfg.Device)
	return nil
}

// Read grabs and decodes one frame.
func (c *Camera) Read(ctx context.Context) (camera.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return camera.Frame{}, camera.ErrCameraNotOpen
	}
	if err := ctx.Err(); err != nil {
		return camera.Frame{}, err
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		return camera.Frame{}, camera.ErrNoFrame
	}
	ts := time.Now()

	img, err := mat.ToImage()
	if err != nil {
		return camera.Frame{}, fmt.Errorf("%w: %v", camera.ErrNoFrame, err)
	}

	f := camera.Frame{Image: img, Timestamp: ts, Seq: c.seq}
	c.seq++
	return f, nil
}

// StreamInfo reports the negotiated capture settings.
func (c *Camera) StreamInfo() (camera.StreamInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return camera.StreamInfo{}, camera.ErrCameraNotOpen
	}

	label := c.cfg.Label
	if label == "" {
		label = c.cfg.Device
	}
	return camera.StreamInfo{
		Live:       true,
		Label:      label,
		DeviceID:   c.cfg.Device,
		FacingMode: c.cfg.FacingMode,
		FrameRate:  c.capture.Get(gocv.VideoCaptureFPS),
		Width:      int(c.capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(c.capture.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// Close stops capture.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

var _ camera.Source = (*Camera)(nil)
