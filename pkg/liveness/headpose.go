package liveness

import (
	"math"

	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/imaging"
)

// HeadPose holds pseudo-angles in degrees derived from 2D landmarks.
type HeadPose struct {
	Yaw   float64
	Pitch float64
	Roll  float64
}

// EstimateHeadPose derives yaw, pitch and roll from the nose, chin, eye
// corners and mouth corners. It returns false if any of them is missing.
func EstimateHeadPose(points face.Landmarks) (HeadPose, bool) {
	if !points.Has(face.NoseTip, face.Chin, face.LeftEyeOuter, face.RightEyeOuter,
		face.LeftMouthCorner, face.RightMouthCorner) {
		return HeadPose{}, false
	}

	nose := points[face.NoseTip]
	chin := points[face.Chin]
	leftEye := points[face.LeftEyeOuter]
	rightEye := points[face.RightEyeOuter]
	leftMouth := points[face.LeftMouthCorner]
	rightMouth := points[face.RightMouthCorner]

	eyeCenterY := (leftEye.Y + rightEye.Y) / 2
	mouthCenterY := (leftMouth.Y + rightMouth.Y) / 2
	faceHeight := math.Abs(chin.Y - (eyeCenterY+mouthCenterY)/2)
	faceWidth := math.Abs(rightEye.X - leftEye.X)

	return HeadPose{
		Roll:  degrees(math.Atan2(rightEye.Y-leftEye.Y, rightEye.X-leftEye.X)),
		Pitch: degrees(math.Atan2(nose.Y-chin.Y, faceHeight)),
		Yaw:   degrees(math.Atan2(nose.X-(leftEye.X+rightEye.X)/2, faceWidth)),
	}, true
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

type headMovementDetector struct {
	cfg HeadPoseConfig
}

// detect accepts movement that is both large across the window and smooth
// step to step. A photo being tilted by hand tends to move in jerks.
func (d headMovementDetector) detect(frames []LandmarkFrame) bool {
	if len(frames) < 2 {
		return false
	}

	poses := make([]HeadPose, 0, len(frames))
	for _, f := range frames {
		p, ok := EstimateHeadPose(f.Points)
		if !ok {
			return false
		}
		poses = append(poses, p)
	}

	oldest, mid, newest := poses[0], poses[len(poses)/2], poses[len(poses)-1]
	threshold := d.cfg.MovementThreshold

	significant := (math.Abs(newest.Yaw-oldest.Yaw) > threshold ||
		math.Abs(newest.Pitch-oldest.Pitch) > threshold ||
		math.Abs(newest.Roll-oldest.Roll) > threshold) &&
		(math.Abs(newest.Yaw-mid.Yaw) > threshold/2 ||
			math.Abs(newest.Pitch-mid.Pitch) > threshold/2)

	steps := make([]float64, 0, len(poses)-1)
	for i := 1; i < len(poses); i++ {
		dy := poses[i].Yaw - poses[i-1].Yaw
		dp := poses[i].Pitch - poses[i-1].Pitch
		dr := poses[i].Roll - poses[i-1].Roll
		steps = append(steps, math.Sqrt(dy*dy+dp*dp+dr*dr))
	}
	mean, std := imaging.MeanStd(steps)
	smooth := std/(mean+0.1) < d.cfg.SmoothnessCoefficient

	return significant && mean > d.cfg.MinAverageMovement && smooth
}
