package conf

import (
	"fmt"
	"strings"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/imageutil"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ErrorCategory lets the errors package classify wrapped validation failures.
func (ve ValidationError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryConfiguration
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateStorageSettings,
		validateDatasetSettings,
		validateTrainingSettings,
		validateClassifierSettings,
		validateBackendSettings,
		validatePreferencesSettings,
		validateLoggingSettings,
		validateTelemetrySettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateStorageSettings(s *Settings) error {
	if strings.TrimSpace(s.Storage.Root) == "" {
		return fmt.Errorf("storage.root must not be empty")
	}
	exts := map[string]string{
		"storage.compiledext":    s.Storage.CompiledExt,
		"storage.pendingext":     s.Storage.PendingExt,
		"storage.placeholderext": s.Storage.PlaceholderExt,
		"storage.imageext":       s.Storage.ImageExt,
	}
	for key, ext := range exts {
		if ext == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
		if err := validateEnvExtension(ext); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	compiled := strings.ToLower(s.Storage.CompiledExt)
	pending := strings.ToLower(s.Storage.PendingExt)
	placeholder := strings.ToLower(s.Storage.PlaceholderExt)
	if compiled == pending || compiled == placeholder {
		return fmt.Errorf("storage.compiledext must differ from pending and placeholder extensions")
	}
	if placeholder == pending {
		return fmt.Errorf("storage.placeholderext must differ from storage.pendingext")
	}
	for key, ext := range map[string]string{
		"storage.compiledext":    compiled,
		"storage.pendingext":     pending,
		"storage.placeholderext": placeholder,
	} {
		if ext == legacyMetadataExt {
			return fmt.Errorf("%s must not be %q, it is reserved for legacy metadata", key, legacyMetadataExt)
		}
	}
	if !imageutil.CanEncode(s.Storage.ImageExt) {
		return fmt.Errorf("storage.imageext %q cannot be encoded, use one of %s",
			s.Storage.ImageExt, strings.Join(imageutil.EncodableExtensions(), ", "))
	}
	return nil
}

func validateDatasetSettings(s *Settings) error {
	if s.Dataset.JPEGQuality < 1 || s.Dataset.JPEGQuality > 100 {
		return fmt.Errorf("dataset.jpegquality must be between 1 and 100, got %d", s.Dataset.JPEGQuality)
	}
	return nil
}

func validateTrainingSettings(s *Settings) error {
	if s.Training.MinLabels < 1 {
		return fmt.Errorf("training.minlabels must be at least 1")
	}
	if s.Training.MinImagesPerLabel < 1 {
		return fmt.Errorf("training.minimagesperlabel must be at least 1")
	}
	return nil
}

func validateClassifierSettings(s *Settings) error {
	if s.Classifier.TopK < 1 {
		return fmt.Errorf("classifier.topk must be at least 1")
	}
	if s.Classifier.CacheTTL < 0 {
		return fmt.Errorf("classifier.cachettl must not be negative")
	}
	return nil
}

func validateBackendSettings(s *Settings) error {
	if err := validateEnvBackendKind(s.Backend.Kind); err != nil {
		return fmt.Errorf("backend.kind: %w", err)
	}
	if s.Backend.Threads < 0 {
		return fmt.Errorf("backend.threads must not be negative")
	}
	return nil
}

func validatePreferencesSettings(s *Settings) error {
	p := s.Preferences
	if err := validateEnvPrefsBackend(p.Backend); err != nil {
		return fmt.Errorf("preferences.backend %q: %w", p.Backend, err)
	}
	switch p.Backend {
	case PrefsFile, PrefsSQLite:
		if p.Path == "" {
			return fmt.Errorf("preferences.path is required for the %s backend", p.Backend)
		}
	case PrefsMySQL:
		if p.DSN == "" {
			return fmt.Errorf("preferences.dsn is required for the mysql backend")
		}
	case PrefsRedis:
		if p.RedisURL == "" {
			return fmt.Errorf("preferences.redisurl is required for the redis backend")
		}
	}
	return nil
}

func validateLoggingSettings(s *Settings) error {
	switch strings.ToLower(s.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("logging.level %q is not a known level", s.Logging.Level)
}

func validateTelemetrySettings(s *Settings) error {
	if s.Telemetry.Enabled && s.Telemetry.DSN == "" {
		return fmt.Errorf("telemetry.dsn is required when telemetry is enabled")
	}
	return nil
}
