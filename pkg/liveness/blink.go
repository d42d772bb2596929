package liveness

import "github.com/MrCodeEU/livegate/pkg/face"

// EyeAspectRatio computes (|p1-p5| + |p2-p4|) / (2·|p0-p3|) for the six eye
// indices. A degenerate or incomplete eye reads as fully open (1.0).
func EyeAspectRatio(points face.Landmarks, eye [6]int) float64 {
	if !points.Has(eye[:]...) {
		return 1.0
	}
	p := func(i int) face.Point { return points[eye[i]] }

	horizontal := face.Distance(p(0), p(3))
	if horizontal == 0 {
		return 1.0
	}
	return (face.Distance(p(1), p(5)) + face.Distance(p(2), p(4))) / (2 * horizontal)
}

// eyeReading is the per-frame blink signal.
type eyeReading struct {
	left, right, avg float64
}

func readEyes(points face.Landmarks) eyeReading {
	l := EyeAspectRatio(points, face.LeftEye)
	r := EyeAspectRatio(points, face.RightEye)
	return eyeReading{left: l, right: r, avg: (l + r) / 2}
}

type blinkDetector struct {
	cfg BlinkConfig
}

func (d blinkDetector) bothClosed(e eyeReading) bool {
	return e.left < d.cfg.ClosedThreshold && e.right < d.cfg.ClosedThreshold
}

func (d blinkDetector) clearlyClosed(e eyeReading) bool {
	return e.avg < d.cfg.ClearlyClosedThreshold || d.bothClosed(e)
}

func (d blinkDetector) open(e eyeReading) bool {
	return e.avg > d.cfg.OpenThreshold
}

// detect scans the most recent window for a closed→open transition. A still
// image cannot produce one.
func (d blinkDetector) detect(frames []LandmarkFrame) bool {
	if len(frames) < 2 {
		return false
	}
	start := max(0, len(frames)-d.cfg.Window)

	readings := make([]eyeReading, 0, len(frames)-start)
	for _, f := range frames[start:] {
		readings = append(readings, readEyes(f.Points))
	}

	// open→closed→open is a superset of the closed→open pair, so checking
	// pairs is enough.
	for i := 0; i+1 < len(readings); i++ {
		curr, next := readings[i], readings[i+1]
		if !d.open(next) {
			continue
		}
		if d.bothClosed(curr) || d.clearlyClosed(curr) {
			return true
		}
	}
	return false
}
