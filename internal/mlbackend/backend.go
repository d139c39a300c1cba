// Package mlbackend defines the external training, compilation and
// inference collaborators. Implementations live in subpackages.
package mlbackend

import (
	"context"
	"image"
	"strings"
)

// Augmentation selects the data augmentations applied during training.
type Augmentation struct {
	Crop     bool `json:"crop"`
	Rotation bool `json:"rotation"`
	Exposure bool `json:"exposure"`
	Flip     bool `json:"flip"`
	Blur     bool `json:"blur"`
	Noise    bool `json:"noise"`
}

// DefaultAugmentation is the fixed configuration used for every run:
// crop, rotation, exposure and flip on, blur and noise off.
func DefaultAugmentation() Augmentation {
	return Augmentation{Crop: true, Rotation: true, Exposure: true, Flip: true}
}

// Names returns the enabled augmentations in a stable order.
func (a Augmentation) Names() []string {
	var names []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{a.Crop, "crop"},
		{a.Rotation, "rotation"},
		{a.Exposure, "exposure"},
		{a.Flip, "flip"},
		{a.Blur, "blur"},
		{a.Noise, "noise"},
	} {
		if f.on {
			names = append(names, f.name)
		}
	}
	return names
}

// String joins Names with commas.
func (a Augmentation) String() string {
	return strings.Join(a.Names(), ",")
}

// Prediction is one label with its confidence in [0,1].
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Trainer trains an image classifier from a directory of label
// subdirectories and writes the uncompiled artifact to destination.
type Trainer interface {
	Train(ctx context.Context, trainingRoot, destination string, aug Augmentation) error
}

// Compiler turns an uncompiled artifact into a loadable one inside
// destinationDir and returns its path.
type Compiler interface {
	Compile(ctx context.Context, source, destinationDir string) (string, error)
}

// Model is a loaded, ready to run classifier.
type Model interface {
	Predict(ctx context.Context, img *image.RGBA) ([]Prediction, error)
	Close() error
}

// Loader loads a compiled artifact.
type Loader interface {
	Load(ctx context.Context, artifactPath string) (Model, error)
}
