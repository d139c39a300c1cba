// Package mltest provides in-process fakes of the ML collaborators.
package mltest

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tphakala/imagelab/internal/mlbackend"
)

// TrainCall records one Trainer.Train invocation.
type TrainCall struct {
	TrainingRoot string
	Destination  string
	Augmentation mlbackend.Augmentation
}

// Trainer writes a small file to the destination and records each call.
// Err, when set, is returned instead.
type Trainer struct {
	mu    sync.Mutex
	Err   error
	calls []TrainCall
}

func (t *Trainer) Train(ctx context.Context, trainingRoot, destination string, aug mlbackend.Augmentation) error {
	t.mu.Lock()
	t.calls = append(t.calls, TrainCall{trainingRoot, destination, aug})
	err := t.Err
	t.mu.Unlock()

	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destination, []byte("trained:"+trainingRoot), 0o644)
}

// Calls returns a copy of the recorded calls.
func (t *Trainer) Calls() []TrainCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TrainCall(nil), t.calls...)
}

// Compiler creates <dir>/<base>.<Ext> as a directory bundle.
type Compiler struct {
	Ext   string // defaults to mlmodelc
	Err   error
	Calls atomic.Int32
}

func (c *Compiler) Compile(ctx context.Context, source, destinationDir string) (string, error) {
	c.Calls.Add(1)
	if c.Err != nil {
		return "", c.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := os.Stat(source); err != nil {
		return "", err
	}
	ext := c.Ext
	if ext == "" {
		ext = "mlmodelc"
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	out := filepath.Join(destinationDir, base+"."+ext)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(out, "model.bin"), []byte("compiled"), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

// Loader returns Models that answer with Predictions. It counts loads and
// tracks how many loaded models are still open.
type Loader struct {
	Predictions []mlbackend.Prediction
	LoadErr     error
	PredictErr  error
	// Gate, when set, blocks Load until it is closed.
	Gate chan struct{}

	Loads atomic.Int32
	Open  atomic.Int32
}

func (l *Loader) Load(ctx context.Context, artifactPath string) (mlbackend.Model, error) {
	l.Loads.Add(1)
	if l.Gate != nil {
		select {
		case <-l.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.LoadErr != nil {
		return nil, l.LoadErr
	}
	if _, err := os.Stat(artifactPath); err != nil {
		return nil, err
	}
	l.Open.Add(1)
	return &Model{loader: l, Artifact: artifactPath}, nil
}

// Model is a loaded fake model.
type Model struct {
	loader   *Loader
	Artifact string
	closed   atomic.Bool
}

func (m *Model) Predict(ctx context.Context, img *image.RGBA) ([]mlbackend.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.loader.PredictErr != nil {
		return nil, m.loader.PredictErr
	}
	return append([]mlbackend.Prediction(nil), m.loader.Predictions...), nil
}

func (m *Model) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.loader.Open.Add(-1)
	}
	return nil
}

var (
	_ mlbackend.Trainer  = (*Trainer)(nil)
	_ mlbackend.Compiler = (*Compiler)(nil)
	_ mlbackend.Loader   = (*Loader)(nil)
)
