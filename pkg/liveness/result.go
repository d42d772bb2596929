package liveness

import "strings"

// State is the decision engine's position for the current call.
type State string

const (
	StateAwaitingFace       State = "awaiting_face"
	StateAwaitingHistory    State = "awaiting_history"
	StateAwaitingBlink      State = "awaiting_blink"
	StateVerifyingSecondary State = "verifying_secondary"
	StatePassed             State = "passed"
	StateBlocked            State = "blocked"
)

// Outcome classifies a Result for callers.
type Outcome string

const (
	// OutcomeWaiting means not enough data yet; keep feeding frames.
	OutcomeWaiting Outcome = "waiting"
	// OutcomeBlocked means a spoofing signal was seen.
	OutcomeBlocked Outcome = "blocked"
	// OutcomePassed means the face is judged live.
	OutcomePassed Outcome = "passed"
)

// Result is the verdict for one DetectLiveness call.
type Result struct {
	Passed                bool
	Confidence            float64
	Reasons               []string
	BlinkDetected         bool
	HeadMovementDetected  bool
	TextureAnalysisPassed bool
	FrameVariationPassed  bool

	State   State
	Outcome Outcome
	// Transient marks a block from a secondary check that may clear on a
	// later frame without a new blink.
	Transient bool
}

// Reason joins all reasons into one line.
func (r Result) Reason() string {
	return strings.Join(r.Reasons, "; ")
}

// Waiting reports whether the result asks for more frames.
func (r Result) Waiting() bool {
	return r.Outcome == OutcomeWaiting
}

// Blocked reports whether the result indicates a suspected spoof.
func (r Result) Blocked() bool {
	return r.Outcome == OutcomeBlocked
}

// User-facing reasons.
const (
	ReasonModelFailed       = "landmark model failed to load, please retry"
	ReasonVideoNotReady     = "video not ready"
	ReasonOutOfOrder        = "frame out of order, dropped"
	ReasonCancelled         = "detection cancelled"
	ReasonDetectionFailed   = "landmark detection failed, please retry"
	ReasonNoFace            = "no face landmarks found - look at the camera"
	ReasonNoFaceBox         = "no face detected - move closer to the camera"
	ReasonCollecting        = "collecting frames - please blink once"
	ReasonScreenCapture     = "screen capture or non-camera source detected - use a real camera"
	ReasonStaticImage       = "static image detected - no natural variation between frames"
	ReasonDiscontinuous     = "abrupt landmark movement detected - possible photo being moved"
	ReasonNoBlink           = "no blink detected - please blink once"
	ReasonVariationFailed   = "frame variation looks unnatural - please try again"
	ReasonTextureFailed     = "face texture looks flat - please try again"
	ReasonBaselineStatic    = "no natural change in face region - please try again"
	ReasonBlinkDetected     = "blink detected"
	ReasonHeadMovement      = "natural head movement detected"
	ReasonTexturePassed     = "skin texture looks natural"
	ReasonVariationPassed   = "frame variation looks natural"
	ReasonLiveFaceConfirmed = "live face confirmed"
)

func waiting(state State, reasons ...string) Result {
	return Result{State: state, Outcome: OutcomeWaiting, Reasons: reasons}
}

func blocked(reasons ...string) Result {
	return Result{State: StateBlocked, Outcome: OutcomeBlocked, Reasons: reasons}
}
