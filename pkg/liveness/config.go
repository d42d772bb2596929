package liveness

import (
	"fmt"
	"time"
)

// Profile selects a threshold preset.
type Profile string

const (
	ProfileDesktop Profile = "desktop" // Fixed webcam, strict stream checks
	ProfileMobile  Profile = "mobile"  // Handheld camera, looser windows
)

// Config holds every tunable threshold used by a Session.
type Config struct {
	Profile Profile

	// HistorySize bounds the landmark history.
	HistorySize int
	// FrameSampleSize bounds the hash/variance sample history.
	FrameSampleSize int

	Blink         BlinkConfig
	HeadPose      HeadPoseConfig
	Texture       TextureConfig
	Static        StaticConfig
	Variation     VariationConfig
	Discontinuity DiscontinuityConfig
	Baseline      BaselineConfig
	Stream        StreamConfig

	// ModelLoad governs loading the landmark model.
	ModelLoad RetryPolicy
	// Inference governs each landmark detection call.
	Inference RetryPolicy
}

// BlinkConfig holds eye aspect ratio thresholds.
type BlinkConfig struct {
	ClosedThreshold        float64
	OpenThreshold          float64
	ClearlyClosedThreshold float64
	Window                 int
}

// HeadPoseConfig holds head movement thresholds. Angles are in degrees.
type HeadPoseConfig struct {
	MovementThreshold     float64
	MinAverageMovement    float64
	SmoothnessCoefficient float64
}

// TextureConfig holds texture analysis thresholds.
type TextureConfig struct {
	Padding           float64
	MaxSize           int
	EdgeDelta         float64
	BlockSize         int
	VarianceThreshold float64
	EdgeThreshold     float64
	LocalThreshold    float64
	MinChecks         int
}

// StaticConfig holds the light per-frame sample and static-image guard settings.
type StaticConfig struct {
	SampleSize    int
	Padding       float64
	HashStep      int
	MinSamples    int
	MinUniqueRate float64
}

// VariationConfig holds frame-variation thresholds.
type VariationConfig struct {
	MinFrames           int
	HashRatio           float64
	VarianceCoefficient float64
	VarianceStdDev      float64
	ChangeCoefficient   float64
	SmallAverageChange  float64
	MinPassedChecks     int
}

// DiscontinuityConfig holds landmark jerk thresholds in normalized units.
type DiscontinuityConfig struct {
	MinFrames       int
	MaxChange       float64
	SoftMaxChange   float64
	UniformRatio    float64
	StdDevChange    float64
	SmallAvgChange  float64
	HardMaxChange   float64
	BlockRatio      float64
	JerkCoefficient float64
}

// BaselineMode is one set of baseline staticness criteria.
type BaselineMode struct {
	StabilityPx      float64
	SizeRatio        float64
	MinChangePercent float64
	PixelThreshold   float64
	MinAge           time.Duration
	RequireSpread    bool
}

// BaselineConfig holds baseline-crop staticness settings.
type BaselineConfig struct {
	Size             int
	Padding          float64
	Strict           BaselineMode
	Grace            BaselineMode
	PostBlinkGrace   bool
	DiscardAfter     time.Duration
	PassGrace        time.Duration
	QuadrantFraction float64
	MinQuadrants     int
}

// StreamConfig holds the capture-source heuristic settings.
type StreamConfig struct {
	Keywords     []string
	MinFrameRate float64
	MinPixels    int
	MaxPixels    int

	// LabelOnly skips the capability checks.
	LabelOnly bool
}

// DefaultConfig returns the desktop profile.
func DefaultConfig() Config {
	return Config{
		Profile:         ProfileDesktop,
		HistorySize:     25,
		FrameSampleSize: 12,
		Blink: BlinkConfig{
			ClosedThreshold:        0.17,
			OpenThreshold:          0.23,
			ClearlyClosedThreshold: 0.18,
			Window:                 15,
		},
		HeadPose: HeadPoseConfig{
			MovementThreshold:     3,
			MinAverageMovement:    0.3,
			SmoothnessCoefficient: 1.3,
		},
		Texture: TextureConfig{
			Padding:           0.15,
			MaxSize:           128,
			EdgeDelta:         20,
			BlockSize:         8,
			VarianceThreshold: 290,
			EdgeThreshold:     0.17,
			LocalThreshold:    170,
			MinChecks:         2,
		},
		Static: StaticConfig{
			SampleSize:    32,
			Padding:       0.1,
			HashStep:      40,
			MinSamples:    2,
			MinUniqueRate: 0.6,
		},
		Variation: VariationConfig{
			MinFrames:           3,
			HashRatio:           0.5,
			VarianceCoefficient: 0.15,
			VarianceStdDev:      18,
			ChangeCoefficient:   1.8,
			SmallAverageChange:  4,
			MinPassedChecks:     2,
		},
		Discontinuity: DiscontinuityConfig{
			MinFrames:       3,
			MaxChange:       0.020,
			SoftMaxChange:   0.015,
			UniformRatio:    0.4,
			StdDevChange:    0.010,
			SmallAvgChange:  0.015,
			HardMaxChange:   0.03,
			BlockRatio:      0.15,
			JerkCoefficient: 2.0,
		},
		Baseline: BaselineConfig{
			Size:    64,
			Padding: 0.1,
			Strict: BaselineMode{
				StabilityPx:      44,
				SizeRatio:        0.22,
				MinChangePercent: 3,
				PixelThreshold:   6,
				MinAge:           40 * time.Millisecond,
				RequireSpread:    true,
			},
			Grace: BaselineMode{
				StabilityPx:      9999,
				SizeRatio:        1,
				MinChangePercent: 1.2,
				PixelThreshold:   3,
			},
			PostBlinkGrace:   true,
			DiscardAfter:     2 * time.Second,
			PassGrace:        1500 * time.Millisecond,
			QuadrantFraction: 0.01,
			MinQuadrants:     2,
		},
		Stream: StreamConfig{
			Keywords:     []string{"screen", "capture", "display", "monitor"},
			MinFrameRate: 20,
			MinPixels:    640 * 480,
			MaxPixels:    3840 * 2160,
		},
		ModelLoad: RetryPolicy{MaxAttempts: 3, Delay: 30 * time.Millisecond},
		Inference: RetryPolicy{MaxAttempts: 1, Delay: 30 * time.Millisecond},
	}
}

// MobileConfig returns the handheld profile: shorter windows and looser
// thresholds, since phone cameras shake and throttle.
func MobileConfig() Config {
	cfg := DefaultConfig()
	cfg.Profile = ProfileMobile
	cfg.FrameSampleSize = 8
	cfg.Blink.Window = 6
	cfg.HeadPose.MovementThreshold = 2
	cfg.HeadPose.MinAverageMovement = 0.2
	cfg.Texture.VarianceThreshold = 250
	cfg.Texture.EdgeThreshold = 0.14
	cfg.Texture.LocalThreshold = 150
	cfg.Texture.MinChecks = 1
	cfg.Variation.MinFrames = 2
	cfg.Variation.HashRatio = 0.4
	cfg.Variation.ChangeCoefficient = 2.0
	cfg.Variation.SmallAverageChange = 3
	cfg.Stream.LabelOnly = true
	cfg.Inference = RetryPolicy{MaxAttempts: 3, Delay: 30 * time.Millisecond}
	return cfg
}

// ConfigFromProfile returns the preset for profile, falling back to desktop.
func ConfigFromProfile(profile Profile) Config {
	switch profile {
	case ProfileMobile:
		return MobileConfig()
	default:
		return DefaultConfig()
	}
}

// Validate checks that thresholds are usable.
func (c Config) Validate() error {
	switch {
	case c.HistorySize < 2:
		return fmt.Errorf("%w: history size must be at least 2, got %d", ErrInvalidConfig, c.HistorySize)
	case c.FrameSampleSize < 2:
		return fmt.Errorf("%w: frame sample size must be at least 2, got %d", ErrInvalidConfig, c.FrameSampleSize)
	case c.Blink.Window < 2:
		return fmt.Errorf("%w: blink window must be at least 2, got %d", ErrInvalidConfig, c.Blink.Window)
	case c.Blink.ClosedThreshold <= 0 || c.Blink.ClosedThreshold >= c.Blink.OpenThreshold:
		return fmt.Errorf("%w: closed threshold %.3f must be positive and below open threshold %.3f",
			ErrInvalidConfig, c.Blink.ClosedThreshold, c.Blink.OpenThreshold)
	case c.Texture.MaxSize < 3 || c.Texture.BlockSize < 1:
		return fmt.Errorf("%w: texture size %d / block %d too small", ErrInvalidConfig, c.Texture.MaxSize, c.Texture.BlockSize)
	case c.Texture.MinChecks < 1 || c.Texture.MinChecks > 3:
		return fmt.Errorf("%w: texture min checks must be 1-3, got %d", ErrInvalidConfig, c.Texture.MinChecks)
	case c.Static.SampleSize < 1 || c.Baseline.Size < 2:
		return fmt.Errorf("%w: sample sizes must be positive", ErrInvalidConfig)
	case c.Static.MinUniqueRate < 0 || c.Static.MinUniqueRate > 1:
		return fmt.Errorf("%w: min unique rate must be between 0 and 1, got %f", ErrInvalidConfig, c.Static.MinUniqueRate)
	case c.Discontinuity.BlockRatio <= 0 || c.Discontinuity.BlockRatio > 1:
		return fmt.Errorf("%w: discontinuity block ratio must be in (0,1], got %f", ErrInvalidConfig, c.Discontinuity.BlockRatio)
	case c.ModelLoad.MaxAttempts < 1 || c.Inference.MaxAttempts < 1:
		return fmt.Errorf("%w: retry policies need at least one attempt", ErrInvalidConfig)
	}
	return nil
}
