// Package gate runs the scan loop: it pulls frames from a camera, finds the
// face box, feeds the liveness engine and hands passed frames to a matcher.
package gate

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MrCodeEU/livegate/pkg/camera"
	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/liveness"
	"github.com/MrCodeEU/livegate/pkg/logging"
)

// Detector finds the face box in a frame.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (face.Box, bool, error)
}

// Engine is the liveness decision engine.
type Engine interface {
	ID() string
	DetectLiveness(ctx context.Context, frame image.Image, ts time.Time, box face.Box) liveness.Result
	// CheckStream reports whether the video source may be used at all.
	CheckStream(info camera.StreamInfo) bool
	Reset()
}

// MatchResult is what the downstream matcher decided.
type MatchResult struct {
	Matched bool
	Subject string
	Score   float64
}

// Matcher identifies the subject in a frame that passed liveness. It is
// never called with a waiting or blocked result.
type Matcher interface {
	Match(ctx context.Context, frame camera.Frame, box face.Box) (MatchResult, error)
}

// Options tune the scan loop.
type Options struct {
	Timeout time.Duration
	// DetectorSkipFrames reuses the previous face box for this many frames
	// between detector runs.
	DetectorSkipFrames int
	// Cooldown blocks a new scan for this long after a successful match.
	Cooldown time.Duration
	// MaxMatchAttempts ends the scan after this many rejected matches.
	MaxMatchAttempts int
	// MaxCameraErrors ends the scan after this many consecutive read errors.
	MaxCameraErrors int
}

// DefaultOptions returns the scan loop defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:            10 * time.Second,
		DetectorSkipFrames: 2,
		Cooldown:           3 * time.Second,
		MaxMatchAttempts:   3,
		MaxCameraErrors:    5,
	}
}

// ScanResult represents the result of a scan.
type ScanResult struct {
	Success   bool
	Error     error
	SessionID string
	Duration  time.Duration
	Frames    int
	Liveness  liveness.Result
	Match     MatchResult
}

// Scanner drives one liveness session from one camera.
type Scanner struct {
	source   camera.Source
	detector Detector
	engine   Engine
	matcher  Matcher
	opts     Options
	log      *logrus.Entry

	// OnResult observes every engine verdict.
	OnResult func(frame camera.Frame, box face.Box, res liveness.Result)

	mu        sync.Mutex
	lastMatch time.Time
	box       face.Box
	hasBox    bool
	sinceBox  int
	now       func() time.Time
}

// NewScanner wires a scanner. matcher may be nil, in which case a liveness
// pass ends the scan successfully.
func NewScanner(source camera.Source, detector Detector, engine Engine, matcher Matcher, opts Options) *Scanner {
	return &Scanner{
		source:   source,
		detector: detector,
		engine:   engine,
		matcher:  matcher,
		opts:     opts,
		log:      logging.Component("gate"),
		now:      time.Now,
	}
}

// Reset forgets the tracked face and clears the engine, for example when
// the subject changes.
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Scanner) resetLocked() {
	s.engine.Reset()
	s.box = face.Box{}
	s.hasBox = false
	s.sinceBox = 0
}

// Scan reads frames until liveness passes and the matcher accepts, or until
// the timeout, cancellation or a terminal error.
func (s *Scanner) Scan(ctx context.Context) ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	result := ScanResult{SessionID: s.engine.ID()}
	log := s.log.WithField("session", result.SessionID)

	if !s.lastMatch.IsZero() && start.Sub(s.lastMatch) < s.opts.Cooldown {
		result.Error = NewScanError(ErrCodeCooldown, true, "")
		return result
	}

	s.resetLocked()
	defer s.resetLocked()

	scanCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	log.Info("Starting scan")

	var (
		sawFace      bool
		cameraErrors int
		rejections   int
	)

	finish := func(err error) ScanResult {
		result.Error = err
		result.Duration = s.now().Sub(start)
		return result
	}
	stopped := func() ScanResult {
		if ctx.Err() != nil {
			return finish(NewScanError(ErrCodeCancelled, false, ""))
		}
		return finish(s.timeoutError(result.Liveness, sawFace))
	}

	// A screen share or file source is refused before any frame is read.
	// A source that cannot describe itself is left to the engine.
	if info, err := s.source.StreamInfo(); err != nil {
		log.Debugf("Stream info unavailable: %v", err)
	} else if !s.engine.CheckStream(info) {
		log.Warnf("SECURITY ALERT: rejected video source %q (%s)", info.Label, info.DeviceID)
		return finish(NewScanError(ErrCodeLivenessBlocked, false, liveness.ReasonScreenCapture))
	}

	for {
		if scanCtx.Err() != nil {
			return stopped()
		}

		frame, err := s.source.Read(scanCtx)
		if err != nil {
			switch {
			case errors.Is(err, camera.ErrEndOfStream):
				log.Debug("End of stream")
				return finish(s.endOfStreamError(result.Liveness, sawFace))
			case scanCtx.Err() != nil:
				return stopped()
			}
			cameraErrors++
			log.Warnf("Failed to read frame: %v", err)
			if s.opts.MaxCameraErrors > 0 && cameraErrors >= s.opts.MaxCameraErrors {
				return finish(NewScanError(ErrCodeCamera, true, err.Error()))
			}
			continue
		}
		cameraErrors = 0
		result.Frames++

		box := s.trackFace(scanCtx, frame)
		if !box.Empty() {
			sawFace = true
		}

		res := s.engine.DetectLiveness(scanCtx, frame.Image, frame.Timestamp, box)
		result.Liveness = res
		if s.OnResult != nil {
			s.OnResult(frame, box, res)
		}

		if res.Outcome != liveness.OutcomePassed {
			if res.State == liveness.StateBlocked {
				log.Warnf("SECURITY ALERT: liveness blocked - possible spoofing attempt: %s", res.Reason())
			}
			continue
		}

		if s.matcher == nil {
			result.Success = true
			s.lastMatch = s.now()
			log.Infof("Liveness passed (confidence %.2f)", res.Confidence)
			return finish(nil)
		}

		match, err := s.matcher.Match(scanCtx, frame, box)
		if err != nil {
			if scanCtx.Err() != nil {
				return stopped()
			}
			log.Warnf("Matcher failed: %v", err)
			continue
		}
		result.Match = match
		if match.Matched {
			result.Success = true
			s.lastMatch = s.now()
			log.Infof("Scan successful for %s (score %.4f, liveness %.2f)", match.Subject, match.Score, res.Confidence)
			return finish(nil)
		}

		rejections++
		log.Debugf("Face not matched (score %.4f), attempt %d", match.Score, rejections)
		if s.opts.MaxMatchAttempts > 0 && rejections >= s.opts.MaxMatchAttempts {
			return finish(NewScanError(ErrCodeNotMatched, false, ""))
		}
	}
}

// trackFace returns the face box for frame, running the detector only every
// DetectorSkipFrames+1 frames while a face is being tracked.
func (s *Scanner) trackFace(ctx context.Context, frame camera.Frame) face.Box {
	if s.hasBox && s.sinceBox < s.opts.DetectorSkipFrames {
		s.sinceBox++
		return s.box
	}

	box, ok, err := s.detector.Detect(ctx, frame.Image)
	if err != nil {
		s.log.Warnf("Face detection failed: %v", err)
		ok = false
	}
	if !ok {
		s.box, s.hasBox, s.sinceBox = face.Box{}, false, 0
		return face.Box{}
	}

	if s.hasBox && subjectChanged(s.box, box) {
		s.log.Info("Subject changed, resetting liveness session")
		s.engine.Reset()
	}
	s.box, s.hasBox, s.sinceBox = box, true, 0
	return box
}

// subjectChanged reports a jump of the box centre by more than the box
// width, which a single face cannot do between detector runs.
func subjectChanged(prev, next face.Box) bool {
	px, py := prev.Center()
	nx, ny := next.Center()
	return math.Hypot(nx-px, ny-py) > math.Max(prev.Width, next.Width)
}

func (s *Scanner) timeoutError(last liveness.Result, sawFace bool) error {
	switch {
	case last.State == liveness.StateBlocked:
		return NewScanError(ErrCodeLivenessBlocked, true, last.Reason())
	case !sawFace:
		return NewScanError(ErrCodeNoFace, true, last.Reason())
	}
	return NewScanError(ErrCodeTimeout, true, last.Reason())
}

func (s *Scanner) endOfStreamError(last liveness.Result, sawFace bool) error {
	switch {
	case last.State == liveness.StateBlocked:
		return NewScanError(ErrCodeLivenessBlocked, false, last.Reason())
	case !sawFace:
		return NewScanError(ErrCodeNoFace, false, last.Reason())
	}
	return NewScanError(ErrCodeEndOfStream, false, last.Reason())
}
