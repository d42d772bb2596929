package landmark

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrCodeEU/livegate/pkg/face"
)

const recording = `{"frame":0,"ts":1000,"landmarks":[{"x":0.1,"y":0.2}]}

{"frame":1,"ts":1033,"landmarks":[{"x":0.3,"y":0.4}]}
{"frame":2,"ts":1066,"landmarks":[]}
`

func TestReadRecords(t *testing.T) {
	records, err := ReadRecords(strings.NewReader(recording))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[1].Landmarks[0].X != 0.3 {
		t.Errorf("record 1 x = %v, want 0.3", records[1].Landmarks[0].X)
	}

	if _, err := ReadRecords(strings.NewReader("{not json}\n")); err == nil {
		t.Error("expected parse error")
	}
}

func TestReplay_ByFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "landmarks.jsonl")
	if err := os.WriteFile(path, []byte(recording), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadReplay(path)
	if err != nil {
		t.Fatal(err)
	}
	start := time.UnixMilli(1000)
	r.Start, r.FPS = start, 30
	ctx := context.Background()
	frame := func(i int) time.Time {
		return start.Add(time.Duration(i) * time.Second / 30)
	}

	wantX := []float64{0.1, 0.3}
	for i, x := range wantX {
		pts, err := r.Detect(ctx, nil, frame(i))
		if err != nil {
			t.Fatalf("Detect(%d) error = %v", i, err)
		}
		if pts[0].X != x {
			t.Errorf("Detect(%d) x = %v, want %v", i, pts[0].X, x)
		}
	}
	if pts, err := r.Detect(ctx, nil, frame(2)); err != nil || len(pts) != 0 {
		t.Errorf("empty record = %v, %v", pts, err)
	}
	if _, err := r.Detect(ctx, nil, frame(3)); !errors.Is(err, ErrReplayExhausted) {
		t.Errorf("Detect() past end error = %v, want ErrReplayExhausted", err)
	}
	if pts, _ := r.Detect(ctx, nil, frame(0)); len(pts) == 0 || pts[0].X != 0.1 {
		t.Error("Detect() did not look frame 0 up again")
	}
}

func TestReplay_SkippedFrames(t *testing.T) {
	records := []Record{
		{Frame: 0, Landmarks: face.Landmarks{{X: 0.30}}},
		{Frame: 1, Landmarks: face.Landmarks{{X: 0.12}}},
		{Frame: 2, Landmarks: face.Landmarks{{X: 0.31}}},
		{Frame: 3, Landmarks: face.Landmarks{{X: 0.32}}},
	}
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	frame := func(i int) time.Time {
		return start.Add(time.Duration(i) * 40 * time.Millisecond)
	}

	tests := []struct {
		name   string
		start  time.Time
		frames []int
	}{
		{name: "frame 1 skipped", start: start, frames: []int{0, 2, 3}},
		{name: "first frames skipped", start: start, frames: []int{2, 3}},
		{name: "anchored on first call", frames: []int{0, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReplay(records)
			r.Start, r.FPS = tt.start, 25

			for _, i := range tt.frames {
				pts, err := r.Detect(context.Background(), nil, frame(i))
				if err != nil {
					t.Fatalf("Detect(frame %d) error = %v", i, err)
				}
				if want := records[i].Landmarks[0].X; len(pts) == 0 || pts[0].X != want {
					t.Errorf("frame %d got %v, want x = %v", i, pts, want)
				}
			}
		})
	}
}

func TestReplay_ByTimestamp(t *testing.T) {
	records, _ := ReadRecords(strings.NewReader(recording))
	r := NewReplay(records)
	r.ByTimestamp = true
	ctx := context.Background()

	pts, err := r.Detect(ctx, nil, time.UnixMilli(1033))
	if err != nil || len(pts) != 1 || pts[0].Y != 0.4 {
		t.Errorf("Detect(1033) = %v, %v", pts, err)
	}
	if pts, _ := r.Detect(ctx, nil, time.UnixMilli(5000)); len(pts) != 0 {
		t.Errorf("unknown ts = %v, want no face", pts)
	}
}

func TestLoadReplay_Missing(t *testing.T) {
	if _, err := LoadReplay(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStatic(t *testing.T) {
	pts := face.Landmarks{{X: 0.5, Y: 0.5}}
	s := NewStatic(pts)

	got, err := s.Detect(context.Background(), nil, time.Now())
	if err != nil || len(got) != 1 {
		t.Errorf("Detect() = %v, %v", got, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Detect(ctx, nil, time.Now()); !errors.Is(err, context.Canceled) {
		t.Errorf("Detect() with cancelled ctx error = %v", err)
	}
}
