// Package liveness decides whether a camera feed shows a live face. A
// Session consumes frames one scan tick at a time, keeps a short landmark
// and pixel-sample history, and folds blink, head movement, texture and
// frame-variation signals into a Result.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/logging"
)

// LandmarkProvider runs the face-mesh model.
type LandmarkProvider interface {
	// Load prepares the model. It is called until Loaded reports true.
	Load(ctx context.Context) error
	Loaded() bool
	// Detect returns the landmarks of the most prominent face, or an empty
	// set when there is none.
	Detect(ctx context.Context, img image.Image, ts time.Time) (face.Landmarks, error)
	Close() error
}

// Dependencies are the external collaborators of a Session.
type Dependencies struct {
	Landmarks LandmarkProvider
	Stream    StreamProbe
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the log entry used by the session.
func WithLogger(entry *logrus.Entry) Option {
	return func(s *Session) {
		s.log = entry
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// Session owns the liveness state for one camera session. It is meant to be
// driven by a single caller; concurrent calls are serialised.
type Session struct {
	mu sync.Mutex

	id  string
	cfg Config
	log *logrus.Entry

	landmarks LandmarkProvider
	stream    StreamProbe

	history  *history
	baseline *baselineGuard

	streamGuard   streamGuard
	static        staticGuard
	discontinuity discontinuityGuard
	blink         blinkDetector
	head          headMovementDetector
	texture       textureAnalyzer
	variation     variationCheck
}

// NewSession validates cfg and builds an empty session.
func NewSession(cfg Config, deps Dependencies, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Landmarks == nil {
		return nil, ErrNoProvider
	}
	if deps.Stream == nil {
		return nil, ErrNoStreamProbe
	}

	s := &Session{
		id:            uuid.NewString(),
		cfg:           cfg,
		landmarks:     deps.Landmarks,
		stream:        deps.Stream,
		history:       newHistory(cfg.HistorySize, cfg.FrameSampleSize),
		baseline:      &baselineGuard{cfg: cfg.Baseline},
		streamGuard:   streamGuard{cfg: cfg.Stream},
		static:        staticGuard{cfg: cfg.Static},
		discontinuity: discontinuityGuard{cfg: cfg.Discontinuity},
		blink:         blinkDetector{cfg: cfg.Blink},
		head:          headMovementDetector{cfg: cfg.HeadPose},
		texture:       textureAnalyzer{cfg: cfg.Texture},
		variation:     variationCheck{cfg: cfg.Variation},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Session(s.id)
	}

	s.log.WithField("profile", cfg.Profile).Debug("Liveness session created")
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Config returns the thresholds in use.
func (s *Session) Config() Config {
	return s.cfg
}

// IsLandmarkModelLoaded reports whether the landmark model is ready.
func (s *Session) IsLandmarkModelLoaded() bool {
	return s.landmarks.Loaded()
}

// Reset clears all history and the cached baseline. Call it when the camera
// starts or stops and whenever the subject may have changed.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.history.reset()
	s.baseline.reset()
}

// Close resets the session and releases the landmark provider.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	if err := s.landmarks.Close(); err != nil {
		return fmt.Errorf("failed to close landmark provider: %w", err)
	}
	return nil
}

// DetectLiveness processes one frame. ts must increase from call to call;
// box is the face box from the detector, in frame pixels. It never returns
// an error: failures become a non-passing Result with a reason.
//
// History is only updated once the landmark model has answered, so a call
// abandoned through ctx leaves the session as it was.
func (s *Session) DetectLiveness(ctx context.Context, frame image.Image, ts time.Time, box face.Box) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.ensureModel(ctx); !ok {
		return r
	}

	if frame == nil || frame.Bounds().Empty() {
		return waiting(StateAwaitingFace, ReasonVideoNotReady)
	}
	if !s.history.accepts(ts) {
		last, _ := s.history.lastTimestamp()
		s.log.WithFields(logrus.Fields{"ts": ts, "last": last}).Debug("Dropping out-of-order frame")
		return waiting(StateAwaitingFace, ReasonOutOfOrder)
	}
	if box.Empty() {
		return waiting(StateAwaitingFace, ReasonNoFaceBox)
	}

	var points face.Landmarks
	err := s.cfg.Inference.Do(ctx, func(ctx context.Context, attempt int) error {
		var err error
		points, err = s.landmarks.Detect(ctx, frame, ts)
		if err != nil {
			s.log.WithError(err).WithField("attempt", attempt).Debug("Landmark detection failed")
		}
		return err
	})
	if ctx.Err() != nil {
		return waiting(StateAwaitingFace, ReasonCancelled)
	}
	if err != nil {
		s.log.WithError(err).Warn("Landmark detection gave up")
		return waiting(StateAwaitingFace, ReasonDetectionFailed)
	}
	if len(points) == 0 {
		return waiting(StateAwaitingFace, ReasonNoFace)
	}

	sample, err := takeSample(s.cfg.Static, frame, box, ts)
	if err != nil {
		s.log.WithError(err).Debug("Face box outside frame")
		return waiting(StateAwaitingFace, ReasonNoFaceBox)
	}

	// Commit point.
	if err := s.history.appendLandmarks(LandmarkFrame{Timestamp: ts, Points: points}); err != nil {
		return waiting(StateAwaitingFace, ReasonOutOfOrder)
	}
	s.history.appendSample(sample)

	r := s.decide(frame, ts, box)
	s.logResult(r)
	return r
}

// ensureModel loads the landmark model under the load retry policy.
func (s *Session) ensureModel(ctx context.Context) (Result, bool) {
	if s.landmarks.Loaded() {
		return Result{}, true
	}

	err := s.cfg.ModelLoad.Do(ctx, func(ctx context.Context, attempt int) error {
		s.log.WithField("attempt", attempt).Debug("Loading landmark model")
		return s.landmarks.Load(ctx)
	})
	switch {
	case err == nil:
		s.log.Info("Landmark model loaded")
		return Result{}, true
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return waiting(StateAwaitingFace, ReasonCancelled), false
	default:
		s.log.WithError(err).Error("Failed to load landmark model")
		return waiting(StateAwaitingFace, ReasonModelFailed), false
	}
}

func (s *Session) logResult(r Result) {
	entry := s.log.WithFields(logrus.Fields{
		"state":      r.State,
		"confidence": r.Confidence,
		"history":    len(s.history.landmarks),
	})
	switch r.Outcome {
	case OutcomePassed:
		entry.Info("Liveness passed")
	case OutcomeBlocked:
		if r.State == StateBlocked {
			entry.WithField("reason", r.Reason()).Warn("Liveness blocked")
		} else {
			entry.WithField("reason", r.Reason()).Debug("Liveness blocked")
		}
	default:
		entry.Debug(r.Reason())
	}
}
