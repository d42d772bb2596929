package main

import (
	"context"
	"image"
	"time"

	"github.com/MrCodeEU/livegate/pkg/camera"
	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/liveness"
	"github.com/MrCodeEU/livegate/pkg/logging"
	"github.com/MrCodeEU/livegate/pkg/storage"
)

// verdictStore is the part of the verdict log the recorder writes to.
type verdictStore interface {
	AppendVerdict(id string, v storage.VerdictRecord) error
}

// engine is the liveness session as seen by the recorder.
type engine interface {
	ID() string
	DetectLiveness(ctx context.Context, frame image.Image, ts time.Time, box face.Box) liveness.Result
	CheckStream(info camera.StreamInfo) bool
	Reset()
}

// recorder times each verdict and appends it to the verdict log. Engine
// time and log write time are tracked apart; each record carries only its
// engine latency.
type recorder struct {
	engine
	store verdictStore
	seq   int
	now   func() time.Time

	counts     map[liveness.Outcome]int
	firstHit   int
	engineTime time.Duration
	logTime    time.Duration
}

func newRecorder(e engine, store verdictStore) *recorder {
	return &recorder{engine: e, store: store, now: time.Now, counts: make(map[liveness.Outcome]int)}
}

func (r *recorder) DetectLiveness(ctx context.Context, frame image.Image, ts time.Time, box face.Box) liveness.Result {
	start := r.now()
	res := r.engine.DetectLiveness(ctx, frame, ts, box)
	latency := r.now().Sub(start)
	r.engineTime += latency

	r.seq++
	r.counts[res.Outcome]++
	if res.Passed && r.firstHit == 0 {
		r.firstHit = r.seq
	}

	if r.store != nil {
		written := r.now()
		if err := r.store.AppendVerdict(r.ID(), storage.NewVerdictRecord(r.seq, ts, res, latency)); err != nil {
			logging.Warnf("Failed to record verdict: %v", err)
		}
		r.logTime += r.now().Sub(written)
	}
	return res
}

// tickCost returns the mean engine and verdict-log time per verdict.
func (r *recorder) tickCost() (engine, log time.Duration) {
	if r.seq == 0 {
		return 0, 0
	}
	n := time.Duration(r.seq)
	return r.engineTime / n, r.logTime / n
}
