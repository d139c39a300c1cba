package classifier

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/tphakala/imagelab/internal/diskmanager"
	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/mlbackend"
)

// Train validates trainingRoot and runs the trainer once with the fixed
// augmentation set, writing the uncompiled artifact to destination.
func (c *Classifier) Train(ctx context.Context, trainingRoot, destination string) (err error) {
	if err := c.Validate(ctx, trainingRoot); err != nil {
		return err
	}
	if c.trainer == nil {
		return errors.Newf("no trainer configured").
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Build()
	}

	dir := filepath.Dir(destination)
	if err := diskmanager.EnsureFreeSpace(ctx, dir, c.minFreeBytes); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.FileError(err, dir, 0)
	}

	aug := mlbackend.DefaultAugmentation()
	start := time.Now()
	defer func() { c.metrics.RecordTraining(time.Since(start).Seconds(), err) }()

	c.log.Info("Training started",
		logger.String("training_root", trainingRoot),
		logger.String("destination", destination),
		logger.String("augmentation", aug.String()))

	if err := c.trainer.Train(ctx, trainingRoot, destination, aug); err != nil {
		if ctx.Err() != nil {
			return errors.New(err).
				Component("classifier").
				Category(errors.CategoryCancellation).
				Timing("train", time.Since(start)).
				Build()
		}
		return errors.New(err).
			Component("classifier").
			Category(errors.CategoryExternalOperation).
			FileContext(trainingRoot, 0).
			Timing("train", time.Since(start)).
			Build()
	}

	c.log.Info("Training finished",
		logger.String("destination", destination),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// TrainModel trains model from its image root and installs the result as
// the selected model.
func (c *Classifier) TrainModel(ctx context.Context, model string) error {
	entry, err := c.models.Get(ctx, model)
	if err != nil {
		return err
	}

	pending := c.layout.PendingArtifactPath(entry.Name)
	if err := c.Train(ctx, c.layout.ImageRoot(entry.Name), pending); err != nil {
		return err
	}
	if err := c.models.SaveTrained(ctx, pending, entry.Name); err != nil {
		return err
	}
	c.invalidate(entry.ArtifactPath)
	return nil
}
