package liveness

import (
	"image"
	"math"
	"time"

	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/imaging"
)

// baselineGuard caches a crop of the face region while the face box holds
// still and requires later crops at the same spot to differ from it.
type baselineGuard struct {
	cfg BaselineConfig

	refBox     face.Box
	baseline   *image.RGBA
	capturedAt time.Time
	passedAt   time.Time
}

// BaselineDiff summarises one comparison against the cached crop.
type BaselineDiff struct {
	ChangedPercent float64
	Quadrants      int
}

func (g *baselineGuard) clear() {
	g.refBox = face.Box{}
	g.baseline = nil
	g.capturedAt = time.Time{}
}

func (g *baselineGuard) reset() {
	g.clear()
	g.passedAt = time.Time{}
}

func (g *baselineGuard) crop(frame image.Image, box face.Box) (*image.RGBA, error) {
	return imaging.Crop(frame, box, g.cfg.Padding, g.cfg.Size, g.cfg.Size)
}

func (g *baselineGuard) stable(mode BaselineMode, box face.Box) bool {
	cx, cy := box.Center()
	rx, ry := g.refBox.Center()
	dist := math.Hypot(cx-rx, cy-ry)
	sizeChange := math.Max(
		math.Abs(box.Width-g.refBox.Width)/g.refBox.Width,
		math.Abs(box.Height-g.refBox.Height)/g.refBox.Height,
	)
	return dist <= mode.StabilityPx && sizeChange <= mode.SizeRatio
}

// check returns true when the face region shows natural change. The first
// call only captures the baseline and returns false.
func (g *baselineGuard) check(frame image.Image, box face.Box, ts time.Time, grace bool) (bool, error) {
	mode := g.cfg.Strict
	if grace {
		mode = g.cfg.Grace
	}

	if g.baseline == nil {
		crop, err := g.crop(frame, box)
		if err != nil {
			return false, err
		}
		g.refBox, g.baseline, g.capturedAt = box, crop, ts
		return false, nil
	}

	if !g.stable(mode, box) {
		if ts.Sub(g.capturedAt) > g.cfg.DiscardAfter {
			g.clear()
		}
		return !g.passedAt.IsZero() && ts.Sub(g.passedAt) < g.cfg.PassGrace, nil
	}

	if ts.Sub(g.capturedAt) < mode.MinAge {
		return false, nil
	}

	current, err := g.crop(frame, g.refBox)
	if err != nil {
		return false, err
	}
	d := g.diff(current, mode.PixelThreshold)

	if d.ChangedPercent < mode.MinChangePercent {
		g.clear()
		return false, nil
	}
	if mode.RequireSpread && d.Quadrants < g.cfg.MinQuadrants {
		g.clear()
		return false, nil
	}

	g.passedAt = ts
	return true, nil
}

// diff counts pixels whose mean absolute RGB difference exceeds threshold
// and how many quadrants hold more than QuadrantFraction of such pixels.
func (g *baselineGuard) diff(current *image.RGBA, threshold float64) BaselineDiff {
	size := g.cfg.Size
	half := size / 2
	var changed int
	var quads [4]int

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := y*current.Stride + x*4
			j := y*g.baseline.Stride + x*4
			d := (absDiff(current.Pix[i], g.baseline.Pix[j]) +
				absDiff(current.Pix[i+1], g.baseline.Pix[j+1]) +
				absDiff(current.Pix[i+2], g.baseline.Pix[j+2])) / 3
			if d <= threshold {
				continue
			}
			changed++
			q := 0
			if y >= half {
				q += 2
			}
			if x >= half {
				q++
			}
			quads[q]++
		}
	}

	quadrantPixels := float64(half * half)
	spread := 0
	for _, n := range quads {
		if float64(n) > quadrantPixels*g.cfg.QuadrantFraction {
			spread++
		}
	}
	return BaselineDiff{
		ChangedPercent: float64(changed) * 100 / float64(size*size),
		Quadrants:      spread,
	}
}

func absDiff(a, b uint8) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}
