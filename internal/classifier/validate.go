package classifier

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/layout"
	"github.com/tphakala/imagelab/internal/logger"
)

// Validation failure reasons reported to metrics.
const (
	reasonMissingRoot       = "missing_root"
	reasonInsufficientLabel = "insufficient_labels"
	reasonInsufficientImage = "insufficient_images"
)

// Validate checks that trainingRoot holds at least the minimum number of
// label directories and that each has enough images. Images are counted
// with the same filter the dataset organizer uses.
func (c *Classifier) Validate(ctx context.Context, trainingRoot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(trainingRoot)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.metrics.RecordValidationFailure(reasonMissingRoot)
		return errors.Newf("training directory %q does not exist", trainingRoot).
			Component("classifier").
			Category(errors.CategoryValidation).
			FileContext(trainingRoot, 0).
			Build()
	case err != nil:
		return errors.FileError(err, trainingRoot, 0)
	case !info.IsDir():
		c.metrics.RecordValidationFailure(reasonMissingRoot)
		return errors.Newf("training path %q is not a directory", trainingRoot).
			Component("classifier").
			Category(errors.CategoryValidation).
			FileContext(trainingRoot, info.Size()).
			Build()
	}

	dirents, err := os.ReadDir(trainingRoot)
	if err != nil {
		return errors.FileError(err, trainingRoot, 0)
	}

	counts := make(map[string]int)
	for _, d := range dirents {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		label := layout.Normalize(d.Name())
		dir := filepath.Join(trainingRoot, d.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return errors.FileError(err, dir, 0)
		}
		n := 0
		for _, f := range files {
			if f.Type().IsRegular() && c.images.Match(f.Name()) {
				n++
			}
		}
		counts[label] = n
	}
	return c.checkCounts(trainingRoot, counts)
}

// ValidateModel applies Validate's rule to the labels of model as seen by
// the dataset store.
func (c *Classifier) ValidateModel(ctx context.Context, model string) error {
	if c.organizer == nil {
		name, err := layout.ValidateName(layout.KindModel, model)
		if err != nil {
			return err
		}
		return c.Validate(ctx, c.layout.ImageRoot(name))
	}
	counts, err := c.organizer.LabelCounts(ctx, model)
	if err != nil {
		return err
	}
	return c.checkCounts(model, counts)
}

func (c *Classifier) checkCounts(source string, counts map[string]int) error {
	if len(counts) < c.minLabels {
		c.metrics.RecordValidationFailure(reasonInsufficientLabel)
		return errors.Newf("insufficient categories: found %d, need at least %d", len(counts), c.minLabels).
			Component("classifier").
			Category(errors.CategoryValidation).
			Context("source", source).
			Context("labels_found", len(counts)).
			Context("labels_required", c.minLabels).
			Build()
	}

	var short []string
	for label, n := range counts {
		if n < c.minImages {
			short = append(short, label)
		}
	}
	if len(short) > 0 {
		slices.Sort(short)
		c.metrics.RecordValidationFailure(reasonInsufficientImage)
		return errors.Newf("insufficient images: labels %s have fewer than %d images",
			strings.Join(short, ", "), c.minImages).
			Component("classifier").
			Category(errors.CategoryValidation).
			Context("source", source).
			Context("labels", short).
			Context("images_required", c.minImages).
			Build()
	}

	c.log.Debug("Training data valid",
		logger.String("source", source),
		logger.Int("labels", len(counts)))
	return nil
}
