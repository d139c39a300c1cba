package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/imagelab/internal/errors"
)

func validSettings() *Settings {
	return &Settings{
		Storage: StorageSettings{
			Root:           "models",
			CompiledExt:    "mlmodelc",
			PendingExt:     "mlmodel",
			PlaceholderExt: "txt",
			ImageExt:       "jpg",
		},
		Dataset:     DatasetSettings{JPEGQuality: 80},
		Training:    TrainingSettings{MinLabels: 2, MinImagesPerLabel: 5},
		Classifier:  ClassifierSettings{TopK: 3, CacheTTL: time.Minute},
		Backend:     BackendSettings{Kind: BackendCommand},
		Preferences: PreferencesSettings{Backend: PrefsMemory},
		Logging:     LoggingSettings{Level: "info"},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"empty root", func(s *Settings) { s.Storage.Root = " " }, "storage.root"},
		{"dotted extension", func(s *Settings) { s.Storage.ImageExt = ".jpg" }, "storage.imageext"},
		{"same compiled and pending", func(s *Settings) { s.Storage.PendingExt = "mlmodelc" }, "storage.compiledext"},
		{"compiled and pending differ only in case", func(s *Settings) { s.Storage.PendingExt = "MLModelC" }, "storage.compiledext"},
		{"same placeholder and pending", func(s *Settings) { s.Storage.PlaceholderExt = "mlmodel" }, "storage.placeholderext"},
		{"json placeholder", func(s *Settings) { s.Storage.PlaceholderExt = "json" }, "storage.placeholderext"},
		{"json placeholder upper case", func(s *Settings) { s.Storage.PlaceholderExt = "JSON" }, "reserved for legacy metadata"},
		{"json pending", func(s *Settings) { s.Storage.PendingExt = "json" }, "storage.pendingext"},
		{"decode-only image ext", func(s *Settings) { s.Storage.ImageExt = "webp" }, "storage.imageext"},
		{"heic image ext", func(s *Settings) { s.Storage.ImageExt = "heic" }, "cannot be encoded"},
		{"png image ext", func(s *Settings) { s.Storage.ImageExt = "png" }, ""},
		{"upper case image ext", func(s *Settings) { s.Storage.ImageExt = "JPEG" }, ""},
		{"jpeg quality zero", func(s *Settings) { s.Dataset.JPEGQuality = 0 }, "dataset.jpegquality"},
		{"jpeg quality too high", func(s *Settings) { s.Dataset.JPEGQuality = 101 }, "dataset.jpegquality"},
		{"min labels zero", func(s *Settings) { s.Training.MinLabels = 0 }, "training.minlabels"},
		{"min images zero", func(s *Settings) { s.Training.MinImagesPerLabel = 0 }, "training.minimagesperlabel"},
		{"topk zero", func(s *Settings) { s.Classifier.TopK = 0 }, "classifier.topk"},
		{"unknown backend", func(s *Settings) { s.Backend.Kind = "onnx" }, "backend.kind"},
		{"unknown prefs backend", func(s *Settings) { s.Preferences.Backend = "etcd" }, "preferences.backend"},
		{"mysql without dsn", func(s *Settings) { s.Preferences.Backend = PrefsMySQL }, "preferences.dsn"},
		{"file without path", func(s *Settings) { s.Preferences.Backend = PrefsFile }, "preferences.path"},
		{"bad log level", func(s *Settings) { s.Logging.Level = "loud" }, "logging.level"},
		{"telemetry without dsn", func(s *Settings) { s.Telemetry.Enabled = true }, "telemetry.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidationErrorCategory(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Classifier.TopK = 0
	err := ValidateSettings(s)
	require.Error(t, err)

	wrapped := errors.New(err).Component("conf").Build()
	assert.Equal(t, errors.CategoryConfiguration, wrapped.Category)
}
