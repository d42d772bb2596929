package liveness

import (
	"strings"

	"github.com/MrCodeEU/livegate/pkg/camera"
)

// StreamProbe exposes the properties of the active video source.
type StreamProbe interface {
	StreamInfo() (camera.StreamInfo, error)
}

// StreamProbeFunc adapts a function to StreamProbe.
type StreamProbeFunc func() (camera.StreamInfo, error)

// StreamInfo calls f.
func (f StreamProbeFunc) StreamInfo() (camera.StreamInfo, error) {
	return f()
}

type streamGuard struct {
	cfg StreamConfig
}

// suspicious reports whether the source looks like a screen share, a file or
// some other non-camera feed.
func (g streamGuard) suspicious(info camera.StreamInfo) bool {
	if !info.Live {
		return true
	}

	label := strings.ToLower(info.Label)
	device := strings.ToLower(info.DeviceID)
	for _, kw := range g.cfg.Keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(label, kw) || strings.Contains(device, kw) {
			return true
		}
	}

	// Real cameras that report a facing mode are trusted on capabilities.
	if g.cfg.LabelOnly || info.FacingMode != "" {
		return false
	}
	if info.FrameRate > 0 && info.FrameRate < g.cfg.MinFrameRate {
		return true
	}
	pixels := info.Width * info.Height
	return pixels > 0 && (pixels > g.cfg.MaxPixels || pixels < g.cfg.MinPixels)
}

// CheckStream applies the stream-source heuristic on its own, for callers
// that want to reject a source before feeding frames.
func (s *Session) CheckStream(info camera.StreamInfo) bool {
	return !s.streamGuard.suspicious(info)
}
