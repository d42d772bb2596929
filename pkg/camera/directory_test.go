package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFrame(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	switch filepath.Ext(path) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		t.Fatal(err)
	}
}

func TestDirectory_ReadInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "frame_002.png"), 32, 24)
	writeFrame(t, filepath.Join(dir, "frame_001.jpg"), 32, 24)
	writeFrame(t, filepath.Join(dir, "frame_003.jpeg"), 32, 24)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644); err != nil {
		t.Fatal(err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := NewDirectory(dir, 10)
	src.Start = start

	ctx := context.Background()
	if err := src.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	if src.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", src.Len())
	}

	for i := 0; i < 3; i++ {
		f, err := src.Read(ctx)
		if err != nil {
			t.Fatalf("Read(%d) error = %v", i, err)
		}
		if f.Seq != i {
			t.Errorf("Seq = %d, want %d", f.Seq, i)
		}
		want := start.Add(time.Duration(i) * 100 * time.Millisecond)
		if !f.Timestamp.Equal(want) {
			t.Errorf("Timestamp = %v, want %v", f.Timestamp, want)
		}
		if f.Width() != 32 || f.Height() != 24 {
			t.Errorf("size = %dx%d, want 32x24", f.Width(), f.Height())
		}
	}

	if _, err := src.Read(ctx); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("Read() past end error = %v, want ErrEndOfStream", err)
	}
}

func TestDirectory_StreamInfo(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "a.png"), 16, 8)

	tests := []struct {
		name       string
		assumeLive bool
	}{
		{"recorded", false},
		{"assumed live", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewDirectory(dir, 30)
			src.AssumeLive = tt.assumeLive
			if err := src.Open(context.Background()); err != nil {
				t.Fatal(err)
			}
			if _, err := src.Read(context.Background()); err != nil {
				t.Fatal(err)
			}

			info, err := src.StreamInfo()
			if err != nil {
				t.Fatal(err)
			}
			if info.Live != tt.assumeLive {
				t.Errorf("Live = %v, want %v", info.Live, tt.assumeLive)
			}
			if info.Width != 16 || info.Height != 8 {
				t.Errorf("resolution = %dx%d, want 16x8", info.Width, info.Height)
			}
			if info.FrameRate != 30 {
				t.Errorf("FrameRate = %v, want 30", info.FrameRate)
			}
		})
	}
}

func TestDirectory_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing directory", func(t *testing.T) {
		src := NewDirectory(filepath.Join(t.TempDir(), "missing"), 30)
		if err := src.Open(ctx); !errors.Is(err, ErrCameraNotFound) {
			t.Errorf("Open() error = %v, want ErrCameraNotFound", err)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		src := NewDirectory(t.TempDir(), 30)
		if err := src.Open(ctx); !errors.Is(err, ErrNoFrame) {
			t.Errorf("Open() error = %v, want ErrNoFrame", err)
		}
	})

	t.Run("read before open", func(t *testing.T) {
		src := NewDirectory(t.TempDir(), 30)
		if _, err := src.Read(ctx); !errors.Is(err, ErrCameraNotOpen) {
			t.Errorf("Read() error = %v, want ErrCameraNotOpen", err)
		}
	})

	t.Run("corrupt image", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not a png"), 0644); err != nil {
			t.Fatal(err)
		}
		src := NewDirectory(dir, 30)
		if err := src.Open(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := src.Read(ctx); !errors.Is(err, ErrNoFrame) {
			t.Errorf("Read() error = %v, want ErrNoFrame", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		writeFrame(t, filepath.Join(dir, "a.png"), 4, 4)
		src := NewDirectory(dir, 30)
		if err := src.Open(ctx); err != nil {
			t.Fatal(err)
		}
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := src.Read(cctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Read() error = %v, want context.Canceled", err)
		}
	})
}

func TestFrame_EmptyImage(t *testing.T) {
	var f Frame
	if f.Width() != 0 || f.Height() != 0 {
		t.Errorf("empty frame size = %dx%d, want 0x0", f.Width(), f.Height())
	}
}
