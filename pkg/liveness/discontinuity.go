package liveness

import (
	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/imaging"
)

type discontinuityGuard struct {
	cfg DiscontinuityConfig
}

// step measures key-point displacement between two consecutive frames.
type step struct {
	max, avg, std float64
}

func measureStep(prev, curr face.Landmarks) step {
	changes := make([]float64, 0, len(face.KeyPoints))
	for _, idx := range face.KeyPoints {
		if !prev.Has(idx) || !curr.Has(idx) {
			changes = append(changes, 0)
			continue
		}
		changes = append(changes, face.Distance(prev[idx], curr[idx]))
	}

	var s step
	for _, c := range changes {
		s.max = max(s.max, c)
	}
	s.avg, s.std = imaging.MeanStd(changes)
	return s
}

// discontinuous flags a step where points jump together or unevenly.
func (g discontinuityGuard) discontinuous(s step) bool {
	return s.max > g.cfg.MaxChange ||
		(s.max > g.cfg.SoftMaxChange && s.avg < s.max*g.cfg.UniformRatio) ||
		(s.std > g.cfg.StdDevChange && s.avg < g.cfg.SmallAvgChange) ||
		s.max > g.cfg.HardMaxChange
}

// blocked reports whether the landmark history moves in jerks: either too
// many discontinuous steps, or a discontinuous step standing out from an
// otherwise still window.
func (g discontinuityGuard) blocked(frames []LandmarkFrame) bool {
	if len(frames) < g.cfg.MinFrames || len(frames) < 2 {
		return false
	}

	count := 0
	averages := make([]float64, 0, len(frames)-1)
	for i := 1; i < len(frames); i++ {
		s := measureStep(frames[i-1].Points, frames[i].Points)
		if g.discontinuous(s) {
			count++
		}
		averages = append(averages, s.avg)
	}

	if float64(count)/float64(len(averages)) > g.cfg.BlockRatio {
		return true
	}
	if count == 0 || g.cfg.JerkCoefficient <= 0 {
		return false
	}
	mean, std := imaging.MeanStd(averages)
	return mean > 0 && std/mean > g.cfg.JerkCoefficient
}
