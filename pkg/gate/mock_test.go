package gate

import (
	"context"
	"image"
	"time"

	"github.com/MrCodeEU/livegate/pkg/camera"
	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/liveness"
)

// MockSource implements camera.Source for testing
type MockSource struct {
	OpenFunc       func(ctx context.Context) error
	ReadFunc       func(ctx context.Context) (camera.Frame, error)
	StreamInfoFunc func() (camera.StreamInfo, error)
	CloseFunc      func() error
}

func (m *MockSource) Open(ctx context.Context) error {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx)
	}
	return nil
}

func (m *MockSource) Read(ctx context.Context) (camera.Frame, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx)
	}
	return camera.Frame{}, camera.ErrEndOfStream
}

func (m *MockSource) StreamInfo() (camera.StreamInfo, error) {
	if m.StreamInfoFunc != nil {
		return m.StreamInfoFunc()
	}
	return camera.StreamInfo{Live: true}, nil
}

func (m *MockSource) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// MockDetector implements Detector for testing
type MockDetector struct {
	DetectFunc func(ctx context.Context, img image.Image) (face.Box, bool, error)
}

func (m *MockDetector) Detect(ctx context.Context, img image.Image) (face.Box, bool, error) {
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, img)
	}
	return face.Box{X: 100, Y: 60, Width: 120, Height: 120}, true, nil
}

// MockEngine implements Engine for testing
type MockEngine struct {
	DetectLivenessFunc func(ctx context.Context, frame image.Image, ts time.Time, box face.Box) liveness.Result
	CheckStreamFunc    func(info camera.StreamInfo) bool
	ResetFunc          func()
}

func (m *MockEngine) ID() string { return "test-session" }

func (m *MockEngine) DetectLiveness(ctx context.Context, frame image.Image, ts time.Time, box face.Box) liveness.Result {
	if m.DetectLivenessFunc != nil {
		return m.DetectLivenessFunc(ctx, frame, ts, box)
	}
	return liveness.Result{State: liveness.StateAwaitingHistory, Outcome: liveness.OutcomeWaiting}
}

func (m *MockEngine) CheckStream(info camera.StreamInfo) bool {
	if m.CheckStreamFunc != nil {
		return m.CheckStreamFunc(info)
	}
	return true
}

func (m *MockEngine) Reset() {
	if m.ResetFunc != nil {
		m.ResetFunc()
	}
}

// MockMatcher implements Matcher for testing
type MockMatcher struct {
	MatchFunc func(ctx context.Context, frame camera.Frame, box face.Box) (MatchResult, error)
}

func (m *MockMatcher) Match(ctx context.Context, frame camera.Frame, box face.Box) (MatchResult, error) {
	if m.MatchFunc != nil {
		return m.MatchFunc(ctx, frame, box)
	}
	return MatchResult{}, nil
}
