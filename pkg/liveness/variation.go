package liveness

import (
	"image"
	"math"
	"time"

	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/imaging"
)

// takeSample crops the face region to a tiny square and reduces it to a hash
// and a luma variance.
func takeSample(cfg StaticConfig, frame image.Image, box face.Box, ts time.Time) (FrameSample, error) {
	crop, err := imaging.Crop(frame, box, cfg.Padding, cfg.SampleSize, cfg.SampleSize)
	if err != nil {
		return FrameSample{}, err
	}
	return FrameSample{
		Timestamp: ts,
		Hash:      imaging.SampledHash(crop.Pix, cfg.HashStep),
		Variance:  imaging.Variance(imaging.Gray(crop)),
	}, nil
}

func uniqueHashes(samples []FrameSample) (unique int, ratio float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	seen := make(map[uint32]struct{}, len(samples))
	for _, s := range samples {
		seen[s.Hash] = struct{}{}
	}
	return len(seen), float64(len(seen)) / float64(len(samples))
}

type staticGuard struct {
	cfg StaticConfig
}

// static reports whether the recent crops repeat too often to be a live face.
func (g staticGuard) static(samples []FrameSample) bool {
	if len(samples) < g.cfg.MinSamples {
		return false
	}
	unique, ratio := uniqueHashes(samples)
	return unique <= 1 || ratio < g.cfg.MinUniqueRate
}

// VariationStats describes how the sampled crops change over the window.
type VariationStats struct {
	HashRatio           float64
	VarianceStdDev      float64
	VarianceCoefficient float64
	AverageChange       float64
	ChangeCoefficient   float64
}

type variationCheck struct {
	cfg VariationConfig
}

func (v variationCheck) measure(samples []FrameSample) VariationStats {
	_, ratio := uniqueHashes(samples)

	variances := make([]float64, len(samples))
	for i, s := range samples {
		variances[i] = s.Variance
	}
	mean, std := imaging.MeanStd(variances)

	changes := make([]float64, 0, len(samples))
	for i := 1; i < len(samples); i++ {
		changes = append(changes, math.Abs(variances[i]-variances[i-1]))
	}
	avgChange, changeStd := imaging.MeanStd(changes)

	return VariationStats{
		HashRatio:           ratio,
		VarianceStdDev:      std,
		VarianceCoefficient: std / (mean + 1),
		AverageChange:       avgChange,
		ChangeCoefficient:   changeStd / (avgChange + 1),
	}
}

// passed requires fresh hashes plus enough supporting signals. Sensor noise
// gives a live face a steady trickle of change; a replayed photo either
// repeats or jumps.
func (v variationCheck) passed(samples []FrameSample) bool {
	if len(samples) < v.cfg.MinFrames {
		return false
	}
	s := v.measure(samples)

	hashPass := s.HashRatio > v.cfg.HashRatio
	checks := 0
	for _, ok := range []bool{
		hashPass,
		s.VarianceCoefficient > v.cfg.VarianceCoefficient,
		s.VarianceStdDev > v.cfg.VarianceStdDev,
		s.ChangeCoefficient < v.cfg.ChangeCoefficient || s.AverageChange < v.cfg.SmallAverageChange,
	} {
		if ok {
			checks++
		}
	}
	return hashPass && checks >= v.cfg.MinPassedChecks
}
