package command

import (
	"context"
	"encoding/json"
	"image"
	"os"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/imageutil"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/mlbackend"
)

// Loader runs a classifier program per prediction:
//
//	<command> [args...] --model <artifact> < image.png
//
// The program prints a JSON array of {"label": ..., "confidence": ...}.
type Loader struct {
	cmd Command
	log logger.Logger
}

// NewLoader returns a loader for cmd. log may be nil.
func NewLoader(cmd Command, log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Loader{cmd: cmd, log: log}
}

// Load checks that the artifact exists. Nothing is kept in memory.
func (l *Loader) Load(_ context.Context, artifactPath string) (mlbackend.Model, error) {
	if !l.cmd.configured() {
		return nil, notConfigured("classifier")
	}
	if _, err := os.Stat(artifactPath); err != nil {
		return nil, errors.New(err).
			Component("mlbackend").
			Category(errors.CategoryNotFound).
			ModelContext("", artifactPath).
			Context("operation", "load").
			Build()
	}
	return &model{cmd: l.cmd, artifact: artifactPath, log: l.log}, nil
}

type model struct {
	cmd      Command
	artifact string
	log      logger.Logger
}

func (m *model) Predict(ctx context.Context, img *image.RGBA) ([]mlbackend.Prediction, error) {
	png, err := imageutil.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	out, err := run(ctx, m.log, m.cmd, []string{"--model", m.artifact}, png)
	if err != nil {
		return nil, err
	}

	var preds []mlbackend.Prediction
	if err := json.Unmarshal(out, &preds); err != nil {
		return nil, errors.New(err).
			Component("mlbackend").
			Category(errors.CategoryExternalOperation).
			Context("operation", "parse-predictions").
			Context("output_bytes", len(out)).
			Build()
	}
	return preds, nil
}

func (m *model) Close() error { return nil }

var _ mlbackend.Loader = (*Loader)(nil)
