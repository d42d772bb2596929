package liveness

import (
	"context"
	"image"
	"time"

	"github.com/MrCodeEU/livegate/pkg/camera"
	"github.com/MrCodeEU/livegate/pkg/face"
)

// MockProvider implements LandmarkProvider for testing.
type MockProvider struct {
	LoadFunc   func(ctx context.Context) error
	LoadedFunc func() bool
	DetectFunc func(ctx context.Context, img image.Image, ts time.Time) (face.Landmarks, error)
	CloseFunc  func() error
}

func (m *MockProvider) Load(ctx context.Context) error {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	return nil
}

func (m *MockProvider) Loaded() bool {
	if m.LoadedFunc != nil {
		return m.LoadedFunc()
	}
	return true
}

func (m *MockProvider) Detect(ctx context.Context, img image.Image, ts time.Time) (face.Landmarks, error) {
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, img, ts)
	}
	return nil, nil
}

func (m *MockProvider) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// scripted returns a provider that hands out meshes in order, repeating the
// last one once the script runs out.
func scripted(meshes ...face.Landmarks) *MockProvider {
	i := 0
	return &MockProvider{
		DetectFunc: func(ctx context.Context, img image.Image, ts time.Time) (face.Landmarks, error) {
			if len(meshes) == 0 {
				return nil, nil
			}
			m := meshes[min(i, len(meshes)-1)]
			i++
			return m, nil
		},
	}
}

func liveStream() StreamProbe {
	return StreamProbeFunc(func() (camera.StreamInfo, error) {
		return camera.StreamInfo{
			Live:      true,
			Label:     "Integrated Webcam",
			DeviceID:  "/dev/video0",
			FrameRate: 30,
			Width:     640,
			Height:    480,
		}, nil
	})
}
