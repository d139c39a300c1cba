package command

import (
	"context"
	"os"
	"path/filepath"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/mlbackend"
)

// Trainer runs a training program as
//
//	<command> [args...] --data <root> --output <destination> --augment crop,rotation,...
//
// and expects the uncompiled artifact at destination when it exits.
type Trainer struct {
	cmd Command
	log logger.Logger
}

// NewTrainer returns a trainer for cmd. log may be nil.
func NewTrainer(cmd Command, log logger.Logger) *Trainer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Trainer{cmd: cmd, log: log}
}

// Train runs the training program once.
func (t *Trainer) Train(ctx context.Context, trainingRoot, destination string, aug mlbackend.Augmentation) error {
	if !t.cmd.configured() {
		return notConfigured("trainer")
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return errors.FileError(err, destination, 0)
	}

	args := []string{"--data", trainingRoot, "--output", destination}
	if names := aug.String(); names != "" {
		args = append(args, "--augment", names)
	}

	t.log.Info("Training started",
		logger.String("data", trainingRoot),
		logger.String("augment", aug.String()))
	if _, err := run(ctx, t.log, t.cmd, args, nil); err != nil {
		return err
	}

	if _, err := os.Stat(destination); err != nil {
		return errors.Newf("trainer finished but wrote no artifact").
			Component("mlbackend").
			Category(errors.CategoryExternalOperation).
			Context("command", t.cmd.Path).
			Build()
	}
	return nil
}

var _ mlbackend.Trainer = (*Trainer)(nil)
