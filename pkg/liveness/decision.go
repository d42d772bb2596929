package liveness

import (
	"image"
	"math"
	"time"

	"github.com/MrCodeEU/livegate/pkg/face"
)

// Confidence weights.
const (
	blinkWeight     = 0.3
	headWeight      = 0.2
	textureWeight   = 0.1
	variationWeight = 0.1

	passFloor      = 0.85
	partialFloor   = 0.5
	partialCeiling = 0.84
	partialScale   = 0.7
)

// decide runs the guards and detectors over the committed history.
func (s *Session) decide(frame image.Image, ts time.Time, box face.Box) Result {
	frames := s.history.landmarks

	info, err := s.stream.StreamInfo()
	if err != nil {
		s.log.WithError(err).Debug("Stream info unavailable, skipping source check")
	} else if s.streamGuard.suspicious(info) {
		return blocked(ReasonScreenCapture)
	}
	if s.static.static(s.history.samples) {
		return blocked(ReasonStaticImage)
	}
	if s.discontinuity.blocked(frames) {
		return blocked(ReasonDiscontinuous)
	}

	if len(frames) < 2 {
		return waiting(StateAwaitingHistory, ReasonCollecting)
	}

	blink := s.blink.detect(frames)
	head := s.head.detect(frames)
	if !blink {
		return Result{
			State:                StateAwaitingBlink,
			Outcome:              OutcomeBlocked,
			Reasons:              []string{ReasonNoBlink},
			HeadMovementDetected: head,
		}
	}

	variation := s.variation.passed(s.history.samples)

	_, texture, err := s.texture.analyze(frame, box)
	if err != nil {
		s.log.WithError(err).Debug("Texture crop failed")
	}

	live, err := s.baseline.check(frame, box, ts, s.cfg.Baseline.PostBlinkGrace)
	if err != nil {
		s.log.WithError(err).Debug("Baseline crop failed")
	}

	r := Result{
		BlinkDetected:         true,
		HeadMovementDetected:  head,
		TextureAnalysisPassed: texture,
		FrameVariationPassed:  variation,
	}

	if !variation || !texture || !live {
		r.State = StateVerifyingSecondary
		r.Outcome = OutcomeBlocked
		r.Transient = true
		r.Confidence = partialConfidence(head, texture, variation)
		if !variation {
			r.Reasons = append(r.Reasons, ReasonVariationFailed)
		}
		if !texture {
			r.Reasons = append(r.Reasons, ReasonTextureFailed)
		}
		if !live {
			r.Reasons = append(r.Reasons, ReasonBaselineStatic)
		}
		return r
	}

	r.Passed = true
	r.State = StatePassed
	r.Outcome = OutcomePassed
	r.Confidence = passConfidence(head, texture, variation)
	r.Reasons = append(r.Reasons, ReasonBlinkDetected)
	if head {
		r.Reasons = append(r.Reasons, ReasonHeadMovement)
	}
	r.Reasons = append(r.Reasons, ReasonTexturePassed, ReasonVariationPassed, ReasonLiveFaceConfirmed)
	return r
}

func score(head, texture, variation bool) float64 {
	total := blinkWeight
	if head {
		total += headWeight
	}
	if texture {
		total += textureWeight
	}
	if variation {
		total += variationWeight
	}
	return total
}

// partialConfidence is reported with a transient block after a blink.
func partialConfidence(head, texture, variation bool) float64 {
	return math.Min(math.Max(score(head, texture, variation)*partialScale, partialFloor), partialCeiling)
}

// passConfidence always lands in [passFloor, 1].
func passConfidence(head, texture, variation bool) float64 {
	base := score(head, texture, false)
	base = math.Min(math.Max(base, blinkWeight), 1)
	if variation {
		base += variationWeight
	}
	return math.Min(math.Max(base, passFloor), 1)
}
