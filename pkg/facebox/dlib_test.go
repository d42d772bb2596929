package facebox

import (
	"context"
	"errors"
	"image"
	"testing"

	goface "github.com/Kagami/go-face"
)

func loadedDlib(t *testing.T, engine FaceEngine) *Dlib {
	t.Helper()
	d := NewDlib()
	d.factory = func(path string) (FaceEngine, error) {
		return engine, nil
	}
	if err := d.LoadModels("/models"); err != nil {
		t.Fatalf("LoadModels: %v", err)
	}
	return d
}

func TestDlibNotLoaded(t *testing.T) {
	d := NewDlib()
	if d.IsLoaded() {
		t.Error("expected IsLoaded to be false initially")
	}
	_, _, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("expected ErrModelNotLoaded, got %v", err)
	}
}

func TestDlibLoadModels(t *testing.T) {
	calls := 0
	d := NewDlib()
	d.factory = func(path string) (FaceEngine, error) {
		calls++
		if path != "/models" {
			t.Errorf("unexpected model path %q", path)
		}
		return &MockFaceEngine{}, nil
	}

	for i := 0; i < 2; i++ {
		if err := d.LoadModels("/models"); err != nil {
			t.Fatalf("LoadModels: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected factory to run once, ran %d times", calls)
	}
	if !d.IsLoaded() {
		t.Error("expected IsLoaded after LoadModels")
	}
}

func TestDlibLoadModelsError(t *testing.T) {
	d := NewDlib()
	d.factory = func(path string) (FaceEngine, error) {
		return nil, errors.New("missing shape predictor")
	}
	if err := d.LoadModels("/models"); err == nil {
		t.Fatal("expected error")
	}
	if d.IsLoaded() {
		t.Error("failed load must leave detector unloaded")
	}
}

func TestDlibDetect(t *testing.T) {
	tests := []struct {
		name   string
		faces  []goface.Face
		err    error
		wantOK bool
		want   image.Rectangle
	}{
		{
			name:   "no faces",
			wantOK: false,
		},
		{
			name:   "single face",
			faces:  []goface.Face{{Rectangle: image.Rect(10, 10, 60, 70)}},
			wantOK: true,
			want:   image.Rect(10, 10, 60, 70),
		},
		{
			name: "largest wins",
			faces: []goface.Face{
				{Rectangle: image.Rect(0, 0, 20, 20)},
				{Rectangle: image.Rect(30, 30, 130, 130)},
				{Rectangle: image.Rect(5, 5, 50, 50)},
			},
			wantOK: true,
			want:   image.Rect(30, 30, 130, 130),
		},
		{
			name: "engine error",
			err:  errors.New("dlib failure"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []byte
			d := loadedDlib(t, &MockFaceEngine{
				RecognizeFunc: func(data []byte) ([]goface.Face, error) {
					got = data
					return tt.faces, tt.err
				},
			})

			box, ok, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 160, 160)))
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected wrapped engine error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if len(got) < 2 || got[0] != 0xFF || got[1] != 0xD8 {
				t.Error("expected JPEG data passed to engine")
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && box.Rect() != tt.want {
				t.Errorf("box = %v, want %v", box.Rect(), tt.want)
			}
		})
	}
}

func TestDlibDetectCancelled(t *testing.T) {
	d := loadedDlib(t, &MockFaceEngine{
		RecognizeFunc: func(data []byte) ([]goface.Face, error) {
			t.Error("engine must not run on a cancelled context")
			return nil, nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := d.Detect(ctx, image.NewRGBA(image.Rect(0, 0, 10, 10))); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDlibClose(t *testing.T) {
	closed := false
	d := loadedDlib(t, &MockFaceEngine{CloseFunc: func() { closed = true }})

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !closed {
		t.Error("expected engine Close to be called")
	}
	if d.IsLoaded() {
		t.Error("expected detector to be unloaded after Close")
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
