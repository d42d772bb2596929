package liveness

import (
	"errors"
	"testing"
)

func TestHistory_Bounded(t *testing.T) {
	h := newHistory(3, 2)
	for i := 0; i < 5; i++ {
		if err := h.appendLandmarks(LandmarkFrame{Timestamp: tick(i), Points: eyes(openEAR)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		h.appendSample(FrameSample{Timestamp: tick(i), Hash: uint32(i)})
	}

	if len(h.landmarks) != 3 {
		t.Fatalf("landmarks = %d, want 3", len(h.landmarks))
	}
	if !h.landmarks[0].Timestamp.Equal(tick(2)) {
		t.Errorf("oldest = %v, want %v", h.landmarks[0].Timestamp, tick(2))
	}
	if len(h.samples) != 2 || h.samples[0].Hash != 3 {
		t.Errorf("samples = %+v, want hashes 3 and 4", h.samples)
	}
}

func TestHistory_RejectsOutOfOrder(t *testing.T) {
	h := newHistory(5, 5)
	if err := h.appendLandmarks(LandmarkFrame{Timestamp: tick(3)}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		i    int
		want error
	}{
		{"equal", 3, ErrOutOfOrder},
		{"older", 1, ErrOutOfOrder},
		{"newer", 4, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.appendLandmarks(LandmarkFrame{Timestamp: tick(tt.i)})
			if !errors.Is(err, tt.want) {
				t.Errorf("appendLandmarks() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHistory_EvictionDoesNotAlias(t *testing.T) {
	h := newHistory(2, 2)
	h.appendLandmarks(LandmarkFrame{Timestamp: tick(0)})
	h.appendLandmarks(LandmarkFrame{Timestamp: tick(1)})
	held := h.landmarks

	h.appendLandmarks(LandmarkFrame{Timestamp: tick(2)})
	if !held[0].Timestamp.Equal(tick(0)) {
		t.Error("eviction rewrote a slice handed out earlier")
	}
}

func TestHistory_Reset(t *testing.T) {
	h := newHistory(5, 5)
	h.appendLandmarks(LandmarkFrame{Timestamp: tick(0)})
	h.appendSample(FrameSample{Timestamp: tick(0)})

	h.reset()
	h.reset()

	if len(h.landmarks) != 0 || len(h.samples) != 0 {
		t.Error("buffers not empty after reset")
	}
	if _, ok := h.lastTimestamp(); ok {
		t.Error("lastTimestamp() reported a value after reset")
	}
	if !h.accepts(tick(0)) {
		t.Error("reset history should accept any timestamp")
	}
}
