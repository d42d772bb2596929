package facebox

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	goface "github.com/Kagami/go-face"

	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/logging"
)

// FaceEngine is the part of the dlib recognizer used for detection.
type FaceEngine interface {
	Recognize(data []byte) ([]goface.Face, error)
	Close()
}

// Dlib detects faces with dlib through go-face. Models are loaded from a
// directory holding the go-face model files.
type Dlib struct {
	mu        sync.RWMutex
	engine    FaceEngine
	modelPath string
	quality   int
	factory   func(path string) (FaceEngine, error)
}

// NewDlib returns an unloaded dlib detector.
func NewDlib() *Dlib {
	return &Dlib{
		quality: 90,
		factory: func(path string) (FaceEngine, error) {
			return goface.NewRecognizer(path)
		},
	}
}

// LoadModels loads the dlib models from modelPath. Loading twice is a no-op.
func (d *Dlib) LoadModels(modelPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine != nil {
		return nil
	}

	logging.Component("facebox").Infof("Loading dlib face models from: %s", modelPath)
	engine, err := d.factory(modelPath)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}
	d.engine = engine
	d.modelPath = modelPath
	return nil
}

// IsLoaded returns true if models are loaded.
func (d *Dlib) IsLoaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.engine != nil
}

// Detect JPEG-encodes the frame and returns the largest face rectangle.
func (d *Dlib) Detect(ctx context.Context, img image.Image) (face.Box, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.engine == nil {
		return face.Box{}, false, ErrModelNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return face.Box{}, false, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.quality}); err != nil {
		return face.Box{}, false, fmt.Errorf("failed to encode frame: %w", err)
	}

	faces, err := d.engine.Recognize(buf.Bytes())
	if err != nil {
		return face.Box{}, false, fmt.Errorf("face detection failed: %w", err)
	}

	origin := img.Bounds().Min
	boxes := make([]face.Box, len(faces))
	for i, f := range faces {
		boxes[i] = face.BoxFromRect(f.Rectangle.Add(origin))
	}
	i := largest(boxes)
	if i < 0 {
		return face.Box{}, false, nil
	}
	return boxes[i], true, nil
}

// Close releases the recognizer.
func (d *Dlib) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine != nil {
		d.engine.Close()
		d.engine = nil
	}
	return nil
}
