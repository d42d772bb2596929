package landmark

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/MrCodeEU/livegate/pkg/face"
)

// Record is one line of a landmark recording.
type Record struct {
	Frame       int            `json:"frame"`
	TimestampMs int64          `json:"ts,omitempty"`
	Landmarks   face.Landmarks `json:"landmarks"`
}

// Replay serves recorded landmarks. By default a record is looked up by
// its frame index, derived from the frame timestamp as (ts-Start)·FPS, so
// frames the caller never asks about do not shift the ones after them.
// With ByTimestamp set, records are matched on ts instead. Either way a
// frame with no record reads as "no face".
type Replay struct {
	ByTimestamp bool
	// Start is the timestamp of frame 0. When zero, the first Detect call
	// anchors it.
	Start time.Time
	// FPS spaces frame indices. Zero means 30.
	FPS float64

	mu       sync.Mutex
	records  []Record
	byFrame  map[int]face.Landmarks
	byTime   map[int64]face.Landmarks
	lastSeen int
}

// NewReplay returns a replay over records. A later record for the same
// frame replaces an earlier one.
func NewReplay(records []Record) *Replay {
	r := &Replay{
		records:  records,
		byFrame:  make(map[int]face.Landmarks, len(records)),
		byTime:   make(map[int64]face.Landmarks, len(records)),
		lastSeen: -1,
	}
	for _, rec := range records {
		r.byFrame[rec.Frame] = rec.Landmarks
		r.lastSeen = max(r.lastSeen, rec.Frame)
		if rec.TimestampMs != 0 {
			r.byTime[rec.TimestampMs] = rec.Landmarks
		}
	}
	return r
}

// LoadReplay reads a JSON Lines recording from path.
func LoadReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open landmark recording: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewReplay(records), nil
}

// ReadRecords parses JSON Lines records. Blank lines are skipped.
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// Len returns the number of records.
func (r *Replay) Len() int {
	return len(r.records)
}

func (r *Replay) Load(ctx context.Context) error { return nil }

func (r *Replay) Loaded() bool { return true }

// Detect returns the landmarks recorded for the frame at ts. A frame past
// the last recorded index returns ErrReplayExhausted.
func (r *Replay) Detect(ctx context.Context, img image.Image, ts time.Time) (face.Landmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ByTimestamp {
		return r.byTime[ts.UnixMilli()], nil
	}

	idx := r.frameAt(ts)
	if idx < 0 {
		return nil, nil
	}
	if idx > r.lastSeen {
		return nil, ErrReplayExhausted
	}
	return r.byFrame[idx], nil
}

// frameAt maps ts onto a frame index. Callers hold r.mu.
func (r *Replay) frameAt(ts time.Time) int {
	if r.Start.IsZero() {
		r.Start = ts
	}
	fps := r.FPS
	if fps <= 0 {
		fps = 30
	}
	return int(math.Round(ts.Sub(r.Start).Seconds() * fps))
}

func (r *Replay) Close() error { return nil }
