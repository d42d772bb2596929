package webcam

import (
	"context"
	"errors"
	"testing"

	"github.com/MrCodeEU/livegate/pkg/camera"
)

func TestDeviceID(t *testing.T) {
	tests := []struct {
		device string
		want   interface{}
	}{
		{"0", 0},
		{"/dev/video2", 2},
		{"/dev/video", "/dev/video"},
		{"rtsp://cam.local/stream", "rtsp://cam.local/stream"},
		{"/tmp/clip.mp4", "/tmp/clip.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.device, func(t *testing.T) {
			if got := deviceID(tt.device); got != tt.want {
				t.Errorf("deviceID(%q) = %v, want %v", tt.device, got, tt.want)
			}
		})
	}
}

func TestCamera_NotOpen(t *testing.T) {
	c := New(Config{Device: "/dev/video99"})

	if _, err := c.Read(context.Background()); !errors.Is(err, camera.ErrCameraNotOpen) {
		t.Errorf("Read() error = %v, want ErrCameraNotOpen", err)
	}
	if _, err := c.StreamInfo(); !errors.Is(err, camera.ErrCameraNotOpen) {
		t.Errorf("StreamInfo() error = %v, want ErrCameraNotOpen", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unopened camera = %v", err)
	}
}

func TestCamera_OpenMissingDevice(t *testing.T) {
	c := New(Config{Device: "/dev/video-does-not-exist"})

	err := c.Open(context.Background())
	if !errors.Is(err, camera.ErrCameraNotFound) {
		t.Errorf("Open() error = %v, want ErrCameraNotFound", err)
	}
}
