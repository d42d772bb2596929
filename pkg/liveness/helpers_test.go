package liveness

import (
	"context"
	"image"
	"io"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MrCodeEU/livegate/pkg/face"
)

const (
	openEAR   = 0.30
	closedEAR = 0.12
)

var (
	testStart = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	testBox   = face.Box{X: 100, Y: 60, Width: 120, Height: 120}
)

// meshOpts shapes a synthetic face mesh.
type meshOpts struct {
	leftEAR, rightEAR float64
	// yaw in degrees, applied by sliding the nose tip.
	yaw float64
	// shift moves every point, as if the whole image were dragged.
	shiftX, shiftY float64
}

// mesh builds a 468-point face with controllable eye openness and yaw.
func mesh(o meshOpts) face.Landmarks {
	pts := make(face.Landmarks, face.MeshSize)
	for i := range pts {
		pts[i] = face.Point{
			X:          0.3 + 0.4*float64(i%22)/22,
			Y:          0.25 + 0.5*float64(i/22)/22,
			Visibility: 1,
			Presence:   1,
		}
	}

	const eyeY, eyeWidth = 0.40, 0.06
	setEye := func(eye [6]int, left, ear float64) {
		half := ear * eyeWidth / 2
		pts[eye[0]] = face.Point{X: left, Y: eyeY}
		pts[eye[3]] = face.Point{X: left + eyeWidth, Y: eyeY}
		pts[eye[1]] = face.Point{X: left + 0.02, Y: eyeY - half}
		pts[eye[5]] = face.Point{X: left + 0.02, Y: eyeY + half}
		pts[eye[2]] = face.Point{X: left + 0.04, Y: eyeY - half}
		pts[eye[4]] = face.Point{X: left + 0.04, Y: eyeY + half}
	}
	// Left eye runs 33→133, right eye 362→263.
	setEye(face.LeftEye, 0.40, o.leftEAR)
	setEye(face.RightEye, 0.54, o.rightEAR)

	faceWidth := pts[face.RightEyeOuter].X - pts[face.LeftEyeOuter].X
	pts[face.NoseTip] = face.Point{X: 0.5 + faceWidth*math.Tan(o.yaw*math.Pi/180), Y: 0.5}
	pts[face.Chin] = face.Point{X: 0.5, Y: 0.7}
	pts[face.LeftMouthCorner] = face.Point{X: 0.45, Y: 0.6}
	pts[face.RightMouthCorner] = face.Point{X: 0.55, Y: 0.6}

	for i := range pts {
		pts[i].X += o.shiftX
		pts[i].Y += o.shiftY
	}
	return pts
}

func eyes(ear float64) face.Landmarks {
	return mesh(meshOpts{leftEAR: ear, rightEAR: ear})
}

// earSequence builds one mesh per EAR value.
func earSequence(ears ...float64) []face.Landmarks {
	out := make([]face.Landmarks, len(ears))
	for i, e := range ears {
		out[i] = eyes(e)
	}
	return out
}

func repeated(ear float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = ear
	}
	return out
}

func framesOf(meshes []face.Landmarks) []LandmarkFrame {
	out := make([]LandmarkFrame, len(meshes))
	for i, m := range meshes {
		out[i] = LandmarkFrame{Timestamp: tick(i), Points: m}
	}
	return out
}

func tick(i int) time.Time {
	return testStart.Add(time.Duration(i) * 33 * time.Millisecond)
}

// noiseFrame is a 320x240 gray noise image, a stand-in for a live camera
// frame with plenty of texture.
func noiseFrame(seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for i := 0; i < len(img.Pix); i += 4 {
		v := uint8(rng.Intn(256))
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

func flatFrame(c uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c, c, c, 255
	}
	return img
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestSession(t *testing.T, cfg Config, provider LandmarkProvider, stream StreamProbe) *Session {
	t.Helper()
	s, err := NewSession(cfg, Dependencies{Landmarks: provider, Stream: stream},
		WithLogger(quietLogger()), WithSessionID("test"))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s
}

// run feeds one frame per mesh, using a fresh noise image each time unless
// frame is set, and returns every result.
func run(t *testing.T, s *Session, n int, frame func(i int) image.Image) []Result {
	t.Helper()
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		results[i] = s.DetectLiveness(context.Background(), frame(i), tick(i), testBox)
	}
	return results
}

func noisy(i int) image.Image {
	return noiseFrame(int64(i + 1))
}
