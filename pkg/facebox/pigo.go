package facebox

import (
	"context"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/logging"
)

// PigoConfig holds cascade detection parameters.
type PigoConfig struct {
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	// MinQuality drops weak detections.
	MinQuality float32
}

// DefaultPigoConfig returns parameters tuned for a webcam at arm's length.
func DefaultPigoConfig() PigoConfig {
	return PigoConfig{
		MinSize:      40,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5,
	}
}

// Pigo detects faces with a pixel-intensity-comparison cascade. It is pure
// Go and needs only the cascade file.
type Pigo struct {
	cfg        PigoConfig
	classifier *pigo.Pigo
}

// NewPigo unpacks a cascade.
func NewPigo(cascade []byte, cfg PigoConfig) (*Pigo, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}
	return &Pigo{cfg: cfg, classifier: classifier}, nil
}

// LoadPigo reads and unpacks a cascade file.
func LoadPigo(path string, cfg PigoConfig) (*Pigo, error) {
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}
	p, err := NewPigo(cascade, cfg)
	if err != nil {
		return nil, err
	}
	logging.Component("facebox").Infof("Pigo detector initialized (min size %d, quality %.1f)", cfg.MinSize, cfg.MinQuality)
	return p, nil
}

// Detect runs the cascade and returns the largest face above MinQuality.
func (p *Pigo) Detect(ctx context.Context, img image.Image) (face.Box, bool, error) {
	if p.classifier == nil {
		return face.Box{}, false, ErrModelNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return face.Box{}, false, err
	}

	b := img.Bounds()
	params := pigo.CascadeParams{
		MinSize:     p.cfg.MinSize,
		MaxSize:     p.cfg.MaxSize,
		ShiftFactor: p.cfg.ShiftFactor,
		ScaleFactor: p.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: grayscale(img),
			Rows:   b.Dy(),
			Cols:   b.Dx(),
			Dim:    b.Dx(),
		},
	}

	dets := p.classifier.RunCascade(params, 0.0)
	dets = p.classifier.ClusterDetections(dets, p.cfg.IoUThreshold)

	boxes := detectionBoxes(dets, p.cfg.MinQuality, b.Min)
	i := largest(boxes)
	if i < 0 {
		return face.Box{}, false, nil
	}
	return boxes[i], true, nil
}

func (p *Pigo) Close() error {
	p.classifier = nil
	return nil
}

// grayscale converts img to the row-major luma plane pigo expects.
func grayscale(img image.Image) []uint8 {
	b := img.Bounds()
	gray := make([]uint8, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			gray[(y-b.Min.Y)*b.Dx()+(x-b.Min.X)] = uint8((r*299 + g*587 + bl*114) / 1000 >> 8)
		}
	}
	return gray
}

// detectionBoxes turns pigo's centre-and-scale detections into boxes in
// frame coordinates.
func detectionBoxes(dets []pigo.Detection, minQuality float32, origin image.Point) []face.Box {
	var boxes []face.Box
	for _, d := range dets {
		if d.Q < minQuality {
			continue
		}
		half := float64(d.Scale) / 2
		boxes = append(boxes, face.Box{
			X:      float64(origin.X+d.Col) - half,
			Y:      float64(origin.Y+d.Row) - half,
			Width:  float64(d.Scale),
			Height: float64(d.Scale),
		})
	}
	return boxes
}
