// env.go - Environment variable configuration and validation for imagelab
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "IMAGELAB_DEBUG", validateEnvBool},

		// Storage
		{"storage.root", "IMAGELAB_STORAGE_ROOT", nil},
		{"storage.compiledext", "IMAGELAB_STORAGE_COMPILEDEXT", validateEnvExtension},
		{"storage.pendingext", "IMAGELAB_STORAGE_PENDINGEXT", validateEnvExtension},
		{"storage.placeholderext", "IMAGELAB_STORAGE_PLACEHOLDEREXT", validateEnvExtension},
		{"storage.imageext", "IMAGELAB_STORAGE_IMAGEEXT", validateEnvExtension},

		{"dataset.jpegquality", "IMAGELAB_DATASET_JPEGQUALITY", validateEnvJPEGQuality},

		// Training
		{"training.minlabels", "IMAGELAB_TRAINING_MINLABELS", validateEnvPositiveInt},
		{"training.minimagesperlabel", "IMAGELAB_TRAINING_MINIMAGESPERLABEL", validateEnvPositiveInt},
		{"training.minfreebytes", "IMAGELAB_TRAINING_MINFREEBYTES", validateEnvUint},

		// Classifier
		{"classifier.topk", "IMAGELAB_CLASSIFIER_TOPK", validateEnvPositiveInt},
		{"classifier.cachettl", "IMAGELAB_CLASSIFIER_CACHETTL", nil},

		// Backend
		{"backend.kind", "IMAGELAB_BACKEND_KIND", validateEnvBackendKind},
		{"backend.trainer.command", "IMAGELAB_BACKEND_TRAINER_COMMAND", nil},
		{"backend.classifier.command", "IMAGELAB_BACKEND_CLASSIFIER_COMMAND", nil},
		{"backend.compilercommand", "IMAGELAB_BACKEND_COMPILERCOMMAND", nil},

		// Preferences
		{"preferences.backend", "IMAGELAB_PREFERENCES_BACKEND", validateEnvPrefsBackend},
		{"preferences.path", "IMAGELAB_PREFERENCES_PATH", nil},
		{"preferences.dsn", "IMAGELAB_PREFERENCES_DSN", nil},
		{"preferences.redisurl", "IMAGELAB_PREFERENCES_REDISURL", nil},

		// Logging and telemetry
		{"logging.level", "IMAGELAB_LOGGING_LEVEL", nil},
		{"logging.filepath", "IMAGELAB_LOGGING_FILEPATH", nil},
		{"telemetry.enabled", "IMAGELAB_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.dsn", "IMAGELAB_TELEMETRY_DSN", nil},
		{"telemetry.listen", "IMAGELAB_TELEMETRY_LISTEN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return bindEnvVars(v)
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvUint(value string) error {
	if _, err := strconv.ParseUint(value, 10, 64); err != nil {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validateEnvJPEGQuality(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 100 {
		return fmt.Errorf("must be between 1 and 100")
	}
	return nil
}

func validateEnvExtension(value string) error {
	if strings.ContainsAny(value, `/\.`) {
		return fmt.Errorf("must be a bare extension without dots or separators")
	}
	return nil
}

func validateEnvBackendKind(value string) error {
	switch value {
	case BackendCommand, BackendTFLite:
		return nil
	}
	return fmt.Errorf("must be %s or %s", BackendCommand, BackendTFLite)
}

func validateEnvPrefsBackend(value string) error {
	switch value {
	case PrefsMemory, PrefsFile, PrefsSQLite, PrefsMySQL, PrefsRedis:
		return nil
	}
	return fmt.Errorf("unknown preferences backend")
}
