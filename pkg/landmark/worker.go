package landmark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/logging"
)

// execCommand is swapped out in tests.
var execCommand = exec.Command

// WorkerConfig describes how to launch the mesh sidecar.
type WorkerConfig struct {
	Command string
	Args    []string
	// ModelPath is sent to the sidecar on load.
	ModelPath string
}

// Worker runs the face-mesh model in a child process. Requests go over the
// child's stdin; responses come back on FD 3 so the child's own stdout and
// stderr logging cannot corrupt the stream.
type Worker struct {
	cfg WorkerConfig
	log *logrus.Entry

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	data   io.ReadCloser
	stderr *io.PipeWriter
	loaded bool
}

// NewWorker returns a worker. The process starts on the first Load.
func NewWorker(cfg WorkerConfig) *Worker {
	return &Worker{cfg: cfg, log: logging.Component("landmark")}
}

func (w *Worker) start() error {
	cmd := execCommand(w.cfg.Command, w.cfg.Args...)

	r, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{pw}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		pw.Close()
		r.Close()
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	stderr := w.log.WriterLevel(logrus.DebugLevel)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		pw.Close()
		r.Close()
		stderr.Close()
		return fmt.Errorf("failed to start %s: %w", w.cfg.Command, err)
	}
	// Only the child holds the write end now.
	pw.Close()

	w.cmd, w.stdin, w.data, w.stderr = cmd, stdin, r, stderr
	w.log.WithField("pid", cmd.Process.Pid).Debug("Landmark worker started")
	return nil
}

func (w *Worker) stop() {
	if w.cmd == nil {
		return
	}
	w.stdin.Close()
	w.data.Close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	_ = w.cmd.Wait()
	w.stderr.Close()

	w.cmd, w.stdin, w.data, w.stderr = nil, nil, nil, nil
	w.loaded = false
}

// roundTrip sends one request and waits for its response. If ctx ends first
// the child is killed, since the stream is no longer in a known state.
func (w *Worker) roundTrip(ctx context.Context, req request, body []byte) (response, error) {
	if w.cmd == nil {
		return response{}, ErrWorkerClosed
	}
	if err := ctx.Err(); err != nil {
		return response{}, err
	}
	payload, err := encodeRequest(req, body)
	if err != nil {
		return response{}, err
	}

	type result struct {
		resp response
		err  error
	}
	done := make(chan result, 1)
	stdin, data := w.stdin, w.data

	go func() {
		if err := writeMessage(stdin, payload); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrWorkerClosed, err)}
			return
		}
		msg, err := readMessage(data)
		if err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrWorkerClosed, err)}
			return
		}
		resp, err := decodeResponse(msg)
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		w.log.WithField("op", req.Op).Warn("Landmark request abandoned, restarting worker")
		w.stop()
		return response{}, ctx.Err()
	case r := <-done:
		// A reported error leaves the stream intact; anything else does not.
		if r.err != nil && !errors.Is(r.err, ErrWorkerFailed) {
			w.stop()
		}
		return r.resp, r.err
	}
}

// Load starts the sidecar if needed and asks it to load the model.
func (w *Worker) Load(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loaded {
		return nil
	}
	if w.cmd == nil {
		if err := w.start(); err != nil {
			return err
		}
	}

	start := time.Now()
	if _, err := w.roundTrip(ctx, request{Op: opLoad, Model: w.cfg.ModelPath}, nil); err != nil {
		return fmt.Errorf("failed to load landmark model: %w", err)
	}
	w.loaded = true
	w.log.WithField("took", time.Since(start)).Info("Landmark model loaded")
	return nil
}

// Loaded reports whether the model is ready.
func (w *Worker) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded
}

// Detect sends img as PNG and returns the landmarks of the first face.
func (w *Worker) Detect(ctx context.Context, img image.Image, ts time.Time) (face.Landmarks, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded {
		return nil, ErrModelNotLoaded
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	b := img.Bounds()
	resp, err := w.roundTrip(ctx, request{
		Op:          opDetect,
		TimestampMs: ts.UnixMilli(),
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, buf.Bytes())
	if err != nil {
		return nil, err
	}
	return resp.Landmarks, nil
}

// Close stops the sidecar.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stop()
	return nil
}
