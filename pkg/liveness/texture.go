package liveness

import (
	"image"

	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/imaging"
)

// TextureStats are the three texture statistics of a face crop.
type TextureStats struct {
	Variance      float64
	EdgeDensity   float64
	LocalVariance float64
}

// MeasureTexture computes global luma variance, edge density and mean
// block variance over a square-ish RGBA crop.
func MeasureTexture(img *image.RGBA, edgeDelta float64, blockSize int) TextureStats {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	gray := imaging.Gray(img)
	if len(gray) == 0 {
		return TextureStats{}
	}

	stats := TextureStats{Variance: imaging.Variance(gray)}

	var edges int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			g := gray[y*w+x]
			if abs(g-gray[y*w+x+1]) > edgeDelta || abs(g-gray[(y+1)*w+x]) > edgeDelta {
				edges++
			}
		}
	}
	stats.EdgeDensity = float64(edges) / float64(len(gray))

	blocksX, blocksY := w/blockSize, h/blockSize
	if blocksX > 0 && blocksY > 0 {
		block := make([]float64, 0, blockSize*blockSize)
		var sum float64
		for by := 0; by < blocksY; by++ {
			for bx := 0; bx < blocksX; bx++ {
				block = block[:0]
				for y := by * blockSize; y < (by+1)*blockSize; y++ {
					block = append(block, gray[y*w+bx*blockSize:y*w+(bx+1)*blockSize]...)
				}
				sum += imaging.Variance(block)
			}
		}
		stats.LocalVariance = sum / float64(blocksX*blocksY)
	}
	return stats
}

type textureAnalyzer struct {
	cfg TextureConfig
}

// passed applies the threshold vote.
func (a textureAnalyzer) passed(s TextureStats) bool {
	checks := 0
	if s.Variance > a.cfg.VarianceThreshold {
		checks++
	}
	if s.EdgeDensity > a.cfg.EdgeThreshold {
		checks++
	}
	if s.LocalVariance > a.cfg.LocalThreshold {
		checks++
	}
	return checks >= a.cfg.MinChecks
}

func (a textureAnalyzer) analyze(frame image.Image, box face.Box) (TextureStats, bool, error) {
	crop, err := imaging.CropMax(frame, box, a.cfg.Padding, a.cfg.MaxSize)
	if err != nil {
		return TextureStats{}, false, err
	}
	stats := MeasureTexture(crop, a.cfg.EdgeDelta, a.cfg.BlockSize)
	return stats, a.passed(stats), nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
