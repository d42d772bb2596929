package config

import (
	"fmt"
	"time"

	"github.com/MrCodeEU/livegate/pkg/liveness"
)

// LivenessConfig selects a threshold profile and overrides individual
// thresholds. Zero values keep the profile's value.
type LivenessConfig struct {
	Profile         string `yaml:"profile"`
	HistorySize     int    `yaml:"history_size,omitempty"`
	FrameSampleSize int    `yaml:"frame_sample_size,omitempty"`

	Blink         BlinkThresholds         `yaml:"blink,omitempty"`
	HeadPose      HeadPoseThresholds      `yaml:"head_pose,omitempty"`
	Texture       TextureThresholds       `yaml:"texture,omitempty"`
	Static        StaticThresholds        `yaml:"static_image,omitempty"`
	Variation     VariationThresholds     `yaml:"frame_variation,omitempty"`
	Discontinuity DiscontinuityThresholds `yaml:"discontinuity,omitempty"`
	Baseline      BaselineThresholds      `yaml:"baseline,omitempty"`
	Stream        StreamThresholds        `yaml:"stream,omitempty"`
	ModelLoad     RetryThresholds         `yaml:"model_load,omitempty"`
	Inference     RetryThresholds         `yaml:"inference,omitempty"`
}

type BlinkThresholds struct {
	Closed        float64 `yaml:"closed,omitempty"`
	Open          float64 `yaml:"open,omitempty"`
	ClearlyClosed float64 `yaml:"clearly_closed,omitempty"`
	Window        int     `yaml:"window,omitempty"`
}

type HeadPoseThresholds struct {
	Movement   float64 `yaml:"movement,omitempty"`
	MinAverage float64 `yaml:"min_average,omitempty"`
	Smoothness float64 `yaml:"smoothness,omitempty"`
}

type TextureThresholds struct {
	Padding   float64 `yaml:"padding,omitempty"`
	MaxSize   int     `yaml:"max_size,omitempty"`
	EdgeDelta float64 `yaml:"edge_delta,omitempty"`
	BlockSize int     `yaml:"block_size,omitempty"`
	Variance  float64 `yaml:"variance,omitempty"`
	Edge      float64 `yaml:"edge,omitempty"`
	Local     float64 `yaml:"local,omitempty"`
	MinChecks int     `yaml:"min_checks,omitempty"`
}

type StaticThresholds struct {
	SampleSize    int     `yaml:"sample_size,omitempty"`
	Padding       float64 `yaml:"padding,omitempty"`
	HashStep      int     `yaml:"hash_step,omitempty"`
	MinSamples    int     `yaml:"min_samples,omitempty"`
	MinUniqueRate float64 `yaml:"min_unique_rate,omitempty"`
}

type VariationThresholds struct {
	MinFrames           int     `yaml:"min_frames,omitempty"`
	HashRatio           float64 `yaml:"hash_ratio,omitempty"`
	VarianceCoefficient float64 `yaml:"variance_coefficient,omitempty"`
	VarianceStdDev      float64 `yaml:"variance_stddev,omitempty"`
	ChangeCoefficient   float64 `yaml:"change_coefficient,omitempty"`
	SmallAverageChange  float64 `yaml:"small_average_change,omitempty"`
	MinPassedChecks     int     `yaml:"min_passed_checks,omitempty"`
}

type DiscontinuityThresholds struct {
	MinFrames       int     `yaml:"min_frames,omitempty"`
	MaxChange       float64 `yaml:"max_change,omitempty"`
	SoftMaxChange   float64 `yaml:"soft_max_change,omitempty"`
	UniformRatio    float64 `yaml:"uniform_ratio,omitempty"`
	StdDevChange    float64 `yaml:"stddev_change,omitempty"`
	SmallAvgChange  float64 `yaml:"small_avg_change,omitempty"`
	HardMaxChange   float64 `yaml:"hard_max_change,omitempty"`
	BlockRatio      float64 `yaml:"block_ratio,omitempty"`
	JerkCoefficient float64 `yaml:"jerk_coefficient,omitempty"`
}

type BaselineModeThresholds struct {
	StabilityPx      float64       `yaml:"stability_px,omitempty"`
	SizeRatio        float64       `yaml:"size_ratio,omitempty"`
	MinChangePercent float64       `yaml:"min_change_percent,omitempty"`
	PixelThreshold   float64       `yaml:"pixel_threshold,omitempty"`
	MinAge           time.Duration `yaml:"min_age,omitempty"`
}

type BaselineThresholds struct {
	Size             int                    `yaml:"size,omitempty"`
	Padding          float64                `yaml:"padding,omitempty"`
	Strict           BaselineModeThresholds `yaml:"strict,omitempty"`
	Grace            BaselineModeThresholds `yaml:"grace,omitempty"`
	PostBlinkGrace   *bool                  `yaml:"post_blink_grace,omitempty"`
	DiscardAfter     time.Duration          `yaml:"discard_after,omitempty"`
	PassGrace        time.Duration          `yaml:"pass_grace,omitempty"`
	QuadrantFraction float64                `yaml:"quadrant_fraction,omitempty"`
	MinQuadrants     int                    `yaml:"min_quadrants,omitempty"`
}

type StreamThresholds struct {
	Keywords     []string `yaml:"keywords,omitempty"`
	MinFrameRate float64  `yaml:"min_frame_rate,omitempty"`
	MinPixels    int      `yaml:"min_pixels,omitempty"`
	MaxPixels    int      `yaml:"max_pixels,omitempty"`
	LabelOnly    *bool    `yaml:"label_only,omitempty"`
}

type RetryThresholds struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	Delay       time.Duration `yaml:"delay,omitempty"`
}

// LivenessConfig builds the engine configuration: the profile preset with
// the configured overrides applied, validated.
func (c *Config) LivenessConfig() (liveness.Config, error) {
	l := c.Liveness

	var cfg liveness.Config
	switch liveness.Profile(l.Profile) {
	case liveness.ProfileDesktop, "":
		cfg = liveness.DefaultConfig()
	case liveness.ProfileMobile:
		cfg = liveness.MobileConfig()
	default:
		return cfg, fmt.Errorf("invalid liveness profile: %s (must be desktop or mobile)", l.Profile)
	}

	setInt(&cfg.HistorySize, l.HistorySize)
	setInt(&cfg.FrameSampleSize, l.FrameSampleSize)

	setFloat(&cfg.Blink.ClosedThreshold, l.Blink.Closed)
	setFloat(&cfg.Blink.OpenThreshold, l.Blink.Open)
	setFloat(&cfg.Blink.ClearlyClosedThreshold, l.Blink.ClearlyClosed)
	setInt(&cfg.Blink.Window, l.Blink.Window)

	setFloat(&cfg.HeadPose.MovementThreshold, l.HeadPose.Movement)
	setFloat(&cfg.HeadPose.MinAverageMovement, l.HeadPose.MinAverage)
	setFloat(&cfg.HeadPose.SmoothnessCoefficient, l.HeadPose.Smoothness)

	setFloat(&cfg.Texture.Padding, l.Texture.Padding)
	setInt(&cfg.Texture.MaxSize, l.Texture.MaxSize)
	setFloat(&cfg.Texture.EdgeDelta, l.Texture.EdgeDelta)
	setInt(&cfg.Texture.BlockSize, l.Texture.BlockSize)
	setFloat(&cfg.Texture.VarianceThreshold, l.Texture.Variance)
	setFloat(&cfg.Texture.EdgeThreshold, l.Texture.Edge)
	setFloat(&cfg.Texture.LocalThreshold, l.Texture.Local)
	setInt(&cfg.Texture.MinChecks, l.Texture.MinChecks)

	setInt(&cfg.Static.SampleSize, l.Static.SampleSize)
	setFloat(&cfg.Static.Padding, l.Static.Padding)
	setInt(&cfg.Static.HashStep, l.Static.HashStep)
	setInt(&cfg.Static.MinSamples, l.Static.MinSamples)
	setFloat(&cfg.Static.MinUniqueRate, l.Static.MinUniqueRate)

	setInt(&cfg.Variation.MinFrames, l.Variation.MinFrames)
	setFloat(&cfg.Variation.HashRatio, l.Variation.HashRatio)
	setFloat(&cfg.Variation.VarianceCoefficient, l.Variation.VarianceCoefficient)
	setFloat(&cfg.Variation.VarianceStdDev, l.Variation.VarianceStdDev)
	setFloat(&cfg.Variation.ChangeCoefficient, l.Variation.ChangeCoefficient)
	setFloat(&cfg.Variation.SmallAverageChange, l.Variation.SmallAverageChange)
	setInt(&cfg.Variation.MinPassedChecks, l.Variation.MinPassedChecks)

	d := l.Discontinuity
	setInt(&cfg.Discontinuity.MinFrames, d.MinFrames)
	setFloat(&cfg.Discontinuity.MaxChange, d.MaxChange)
	setFloat(&cfg.Discontinuity.SoftMaxChange, d.SoftMaxChange)
	setFloat(&cfg.Discontinuity.UniformRatio, d.UniformRatio)
	setFloat(&cfg.Discontinuity.StdDevChange, d.StdDevChange)
	setFloat(&cfg.Discontinuity.SmallAvgChange, d.SmallAvgChange)
	setFloat(&cfg.Discontinuity.HardMaxChange, d.HardMaxChange)
	setFloat(&cfg.Discontinuity.BlockRatio, d.BlockRatio)
	setFloat(&cfg.Discontinuity.JerkCoefficient, d.JerkCoefficient)

	b := l.Baseline
	setInt(&cfg.Baseline.Size, b.Size)
	setFloat(&cfg.Baseline.Padding, b.Padding)
	applyBaselineMode(&cfg.Baseline.Strict, b.Strict)
	applyBaselineMode(&cfg.Baseline.Grace, b.Grace)
	if b.PostBlinkGrace != nil {
		cfg.Baseline.PostBlinkGrace = *b.PostBlinkGrace
	}
	setDuration(&cfg.Baseline.DiscardAfter, b.DiscardAfter)
	setDuration(&cfg.Baseline.PassGrace, b.PassGrace)
	setFloat(&cfg.Baseline.QuadrantFraction, b.QuadrantFraction)
	setInt(&cfg.Baseline.MinQuadrants, b.MinQuadrants)

	if len(l.Stream.Keywords) > 0 {
		cfg.Stream.Keywords = append([]string(nil), l.Stream.Keywords...)
	}
	setFloat(&cfg.Stream.MinFrameRate, l.Stream.MinFrameRate)
	setInt(&cfg.Stream.MinPixels, l.Stream.MinPixels)
	setInt(&cfg.Stream.MaxPixels, l.Stream.MaxPixels)
	if l.Stream.LabelOnly != nil {
		cfg.Stream.LabelOnly = *l.Stream.LabelOnly
	}

	setInt(&cfg.ModelLoad.MaxAttempts, l.ModelLoad.MaxAttempts)
	setDuration(&cfg.ModelLoad.Delay, l.ModelLoad.Delay)
	setInt(&cfg.Inference.MaxAttempts, l.Inference.MaxAttempts)
	setDuration(&cfg.Inference.Delay, l.Inference.Delay)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid liveness thresholds: %w", err)
	}
	return cfg, nil
}

func applyBaselineMode(dst *liveness.BaselineMode, src BaselineModeThresholds) {
	setFloat(&dst.StabilityPx, src.StabilityPx)
	setFloat(&dst.SizeRatio, src.SizeRatio)
	setFloat(&dst.MinChangePercent, src.MinChangePercent)
	setFloat(&dst.PixelThreshold, src.PixelThreshold)
	setDuration(&dst.MinAge, src.MinAge)
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
