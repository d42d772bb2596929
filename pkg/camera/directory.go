package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrCodeEU/livegate/pkg/logging"
)

// Directory replays a folder of still images as a stream, one frame per
// file in name order.
type Directory struct {
	Path string
	// FPS spaces the synthetic timestamps.
	FPS float64
	// AssumeLive reports the stream as a live camera. Recorded sessions are
	// otherwise rejected by the stream-source check.
	AssumeLive bool
	// Start is the timestamp of the first frame.
	Start time.Time

	mu     sync.Mutex
	files  []string
	next   int
	width  int
	height int
	open   bool
}

// NewDirectory returns a Directory source for path.
func NewDirectory(path string, fps float64) *Directory {
	return &Directory{Path: path, FPS: fps}
}

// Open lists the image files in the directory.
func (d *Directory) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrCameraNotFound, d.Path)
		}
		return fmt.Errorf("failed to list frames: %w", err)
	}

	d.files = d.files[:0]
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			d.files = append(d.files, filepath.Join(d.Path, e.Name()))
		}
	}
	sort.Strings(d.files)
	if len(d.files) == 0 {
		return fmt.Errorf("%w: no images in %s", ErrNoFrame, d.Path)
	}

	if d.FPS <= 0 {
		d.FPS = 30
	}
	if d.Start.IsZero() {
		d.Start = time.Now()
	}
	d.next = 0
	d.open = true

	logging.Component("camera").Debugf("Replaying %d frames from %s", len(d.files), d.Path)
	return nil
}

// Len returns the number of frames found by Open.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.files)
}

// Read decodes the next image. It returns ErrEndOfStream after the last one.
func (d *Directory) Read(ctx context.Context) (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return Frame{}, ErrCameraNotOpen
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if d.next >= len(d.files) {
		return Frame{}, ErrEndOfStream
	}

	path := d.files[d.next]
	img, err := decodeFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %s: %v", ErrNoFrame, path, err)
	}
	if d.width == 0 {
		d.width, d.height = img.Bounds().Dx(), img.Bounds().Dy()
	}

	offset := time.Duration(float64(d.next) * float64(time.Second) / d.FPS)
	f := Frame{Image: img, Timestamp: d.Start.Add(offset), Seq: d.next}
	d.next++
	return f, nil
}

// StreamInfo describes the replay. Resolution is known after the first Read.
func (d *Directory) StreamInfo() (StreamInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return StreamInfo{
		Live:      d.AssumeLive,
		Label:     "directory " + d.Path,
		DeviceID:  d.Path,
		FrameRate: d.FPS,
		Width:     d.width,
		Height:    d.height,
	}, nil
}

// Close releases the file list.
func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.files = nil
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
