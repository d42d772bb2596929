// Package imaging provides the pixel access used by the liveness checks:
// cropping a face region out of a frame into a small RGBA buffer and a few
// statistics over the result.
package imaging

import (
	"errors"
	"image"
	"math"

	"github.com/MrCodeEU/livegate/pkg/face"
	"golang.org/x/image/draw"
)

// ErrEmptyRegion is returned when a crop does not overlap the frame.
var ErrEmptyRegion = errors.New("crop region is outside the frame")

// ErrEmptyFrame is returned for a nil or zero-sized frame.
var ErrEmptyFrame = errors.New("frame has no pixels")

// Crop resamples the part of box (grown by pad on each side) that lies inside
// img into a w×h RGBA buffer.
func Crop(img image.Image, box face.Box, pad float64, w, h int) (*image.RGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}
	src := box.Pad(pad).Rect().Intersect(img.Bounds())
	if src.Empty() || w <= 0 || h <= 0 {
		return nil, ErrEmptyRegion
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst, nil
}

// CropMax is Crop with the output capped at limit pixels per side; smaller
// regions keep their own size.
func CropMax(img image.Image, box face.Box, pad float64, limit int) (*image.RGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}
	src := box.Pad(pad).Rect().Intersect(img.Bounds())
	if src.Empty() {
		return nil, ErrEmptyRegion
	}
	return Crop(img, box, pad, min(limit, src.Dx()), min(limit, src.Dy()))
}

// Gray returns the (r+g+b)/3 luma of each pixel in row-major order.
func Gray(img *image.RGBA) []float64 {
	b := img.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			out = append(out, (float64(row[i])+float64(row[i+1])+float64(row[i+2]))/3)
		}
	}
	return out
}

// SampledHash folds every step-th byte of pix into an order-sensitive
// 32-bit accumulator (h = h*31 + b).
func SampledHash(pix []byte, step int) uint32 {
	if step <= 0 {
		step = 1
	}
	var h uint32
	for i := 0; i < len(pix); i += step {
		h = h<<5 - h + uint32(pix[i])
	}
	return h
}

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// Variance returns the population variance of values.
func Variance(values []float64) float64 {
	_, std := MeanStd(values)
	return std * std
}
