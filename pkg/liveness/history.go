package liveness

import (
	"time"

	"github.com/MrCodeEU/livegate/pkg/face"
)

// LandmarkFrame is one landmark set and the time it was captured.
type LandmarkFrame struct {
	Timestamp time.Time
	Points    face.Landmarks
}

// FrameSample is the hash and luma variance of one small face crop.
type FrameSample struct {
	Timestamp time.Time
	Hash      uint32
	Variance  float64
}

// history is the bounded per-session state. Landmark timestamps are
// strictly increasing.
type history struct {
	landmarkCap int
	sampleCap   int
	landmarks   []LandmarkFrame
	samples     []FrameSample
}

func newHistory(landmarkCap, sampleCap int) *history {
	return &history{landmarkCap: landmarkCap, sampleCap: sampleCap}
}

// lastTimestamp returns the newest landmark timestamp, if any.
func (h *history) lastTimestamp() (time.Time, bool) {
	if len(h.landmarks) == 0 {
		return time.Time{}, false
	}
	return h.landmarks[len(h.landmarks)-1].Timestamp, true
}

// accepts reports whether ts advances past the newest entry.
func (h *history) accepts(ts time.Time) bool {
	last, ok := h.lastTimestamp()
	return !ok || ts.After(last)
}

func (h *history) appendLandmarks(f LandmarkFrame) error {
	if !h.accepts(f.Timestamp) {
		return ErrOutOfOrder
	}
	h.landmarks = appendBounded(h.landmarks, f, h.landmarkCap)
	return nil
}

func (h *history) appendSample(s FrameSample) {
	h.samples = appendBounded(h.samples, s, h.sampleCap)
}

func (h *history) reset() {
	h.landmarks = nil
	h.samples = nil
}

func appendBounded[T any](buf []T, v T, capacity int) []T {
	buf = append(buf, v)
	if over := len(buf) - capacity; over > 0 {
		buf = append(buf[:0:0], buf[over:]...)
	}
	return buf
}
