package classifier

import (
	"cmp"
	"context"
	"fmt"
	"image"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/imageutil"
	"github.com/tphakala/imagelab/internal/layout"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/mlbackend"
)

// Result holds the top predictions of one classification, best first.
type Result struct {
	Model       string                 `json:"model"`
	Predictions []mlbackend.Prediction `json:"predictions"`
}

// Strings formats every prediction with FormatPrediction.
func (r Result) Strings() []string {
	out := make([]string, len(r.Predictions))
	for i, p := range r.Predictions {
		out[i] = FormatPrediction(p)
	}
	return out
}

// FormatPrediction renders p as "label: 87.50%".
func FormatPrediction(p mlbackend.Prediction) string {
	return fmt.Sprintf("%s: %.2f%%", p.Label, p.Confidence*100)
}

// Classify runs model on img and returns the top predictions sorted by
// descending confidence.
func (c *Classifier) Classify(ctx context.Context, img image.Image, model string) (res Result, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordClassification(res.Model, time.Since(start).Seconds(), err) }()

	res.Model = model
	rgba, err := imageutil.ToRGBA(img)
	if err != nil {
		return res, err
	}
	name, err := layout.ValidateName(layout.KindModel, model)
	if err != nil {
		return res, err
	}
	res.Model = name
	if c.loader == nil {
		return res, errors.Newf("no classifier backend configured").
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Build()
	}

	artifact := c.layout.CompiledArtifactPath(name)
	info, err := os.Stat(artifact)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, errors.Newf("model %q has no compiled artifact", name).
				Component("classifier").
				Category(errors.CategoryNotFound).
				ModelContext(name, artifact).
				Build()
		}
		return res, errors.FileError(err, artifact, 0)
	}

	preds, err := c.predict(ctx, artifact, info.ModTime(), rgba)
	if err != nil {
		return res, errors.New(err).
			Component("classifier").
			Category(errors.CategoryExternalOperation).
			ModelContext(name, artifact).
			Timing("classify", time.Since(start)).
			Build()
	}

	slices.SortStableFunc(preds, func(a, b mlbackend.Prediction) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	if len(preds) > c.topK {
		preds = preds[:c.topK]
	}
	res.Predictions = preds

	c.log.Debug("Image classified",
		logger.String("model", name),
		logger.Int("predictions", len(preds)),
		logger.Duration("duration", time.Since(start)))
	return res, nil
}

// predict loads the artifact through the cache and runs it, reloading once
// if the cached model was evicted in between.
func (c *Classifier) predict(ctx context.Context, artifact string, modTime time.Time, img *image.RGBA) ([]mlbackend.Prediction, error) {
	for range 2 {
		cm, err := c.load(ctx, artifact, modTime)
		if err != nil {
			return nil, err
		}
		preds, ok, err := cm.predict(ctx, img)
		if ok {
			return preds, err
		}
	}
	return nil, errors.Newf("model was evicted during classification").
		Component("classifier").
		Category(errors.CategoryModelLoad).
		Build()
}

// ClassifyCurrent classifies img with the current model.
func (c *Classifier) ClassifyCurrent(ctx context.Context, img image.Image) (Result, error) {
	entry, err := c.models.Current(ctx)
	if err != nil {
		return Result{}, err
	}
	return c.Classify(ctx, img, entry.Name)
}

// ClassifyBytes decodes data and classifies it with model, or with the
// current model when model is empty.
func (c *Classifier) ClassifyBytes(ctx context.Context, data []byte, model string) (Result, error) {
	img, _, err := imageutil.Decode(data)
	if err != nil {
		return Result{}, err
	}
	if model == "" {
		return c.ClassifyCurrent(ctx, img)
	}
	return c.Classify(ctx, img, model)
}
