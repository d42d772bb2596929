package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MrCodeEU/livegate/pkg/camera"
	"github.com/MrCodeEU/livegate/pkg/camera/webcam"
	"github.com/MrCodeEU/livegate/pkg/config"
	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/facebox"
	"github.com/MrCodeEU/livegate/pkg/gate"
	"github.com/MrCodeEU/livegate/pkg/landmark"
	"github.com/MrCodeEU/livegate/pkg/liveness"
	"github.com/MrCodeEU/livegate/pkg/logging"
	"github.com/MrCodeEU/livegate/pkg/storage"
)

// exitError ends the process with a specific exit code.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func asExit(err error, target **exitError) bool {
	return errors.As(err, target)
}

func newSource(c *config.Config) camera.Source {
	if c.Camera.Source == "directory" {
		dir := camera.NewDirectory(c.Camera.Directory, float64(c.Camera.FPS))
		dir.AssumeLive = c.Camera.AssumeLive
		return dir
	}
	return webcam.New(webcam.Config{
		Device:     c.Camera.Device,
		Width:      c.Camera.Width,
		Height:     c.Camera.Height,
		FPS:        c.Camera.FPS,
		Label:      c.Camera.Label,
		FacingMode: c.Camera.FacingMode,
	})
}

func newDetector(c *config.Config) (facebox.Detector, error) {
	d := c.Detector
	if d.Backend == "dlib" {
		det := facebox.NewDlib()
		if err := det.LoadModels(d.ModelPath); err != nil {
			return nil, err
		}
		return det, nil
	}
	return facebox.LoadPigo(d.CascadePath, facebox.PigoConfig{
		MinSize:      d.MinSize,
		MaxSize:      d.MaxSize,
		ShiftFactor:  d.ShiftFactor,
		ScaleFactor:  d.ScaleFactor,
		IoUThreshold: d.IoU,
		MinQuality:   float32(d.MinQuality),
	})
}

func newLandmarks(c *config.Config) (landmark.Provider, error) {
	l := c.Landmark
	if l.Backend == "replay" {
		return landmark.LoadReplay(l.ReplayPath)
	}
	return landmark.NewWorker(landmark.WorkerConfig{
		Command:   l.Command,
		Args:      l.Args,
		ModelPath: l.ModelPath,
	}), nil
}

func newSession(c *config.Config, provider landmark.Provider, stream liveness.StreamProbe, id string) (*liveness.Session, error) {
	lc, err := c.LivenessConfig()
	if err != nil {
		return nil, err
	}
	return liveness.NewSession(lc,
		liveness.Dependencies{Landmarks: provider, Stream: stream},
		liveness.WithSessionID(id),
		liveness.WithLogger(logging.Session(id)),
	)
}

func newStore(c *config.Config) (*storage.FileStorage, error) {
	if !c.Storage.RecordVerdicts {
		return nil, nil
	}
	return storage.NewFileStorage(c.Storage.DataDir, c.Storage.EncryptionEnabled)
}

func gateOptions(c *config.Config) gate.Options {
	return gate.Options{
		Timeout:            c.Gate.Timeout,
		DetectorSkipFrames: c.Gate.DetectorSkipFrames,
		Cooldown:           c.Gate.Cooldown,
		MaxMatchAttempts:   c.Gate.MaxMatchAttempts,
		MaxCameraErrors:    c.Gate.MaxCameraErrors,
	}
}

// parseBox reads "x,y,w,h" in pixels.
func parseBox(s string) (face.Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return face.Box{}, fmt.Errorf("box must be x,y,w,h, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return face.Box{}, fmt.Errorf("invalid box value %q: %w", p, err)
		}
		v[i] = f
	}
	box := face.Box{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if box.Empty() {
		return face.Box{}, fmt.Errorf("box %q has no area", s)
	}
	return box, nil
}
