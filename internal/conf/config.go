// Package conf loads imagelab settings from config.yaml, environment
// variables and command line flags using viper.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings is the complete imagelab configuration.
type Settings struct {
	Debug bool `yaml:"debug"` // enables debug logging everywhere

	Storage     StorageSettings     `yaml:"storage"`
	Dataset     DatasetSettings     `yaml:"dataset"`
	Training    TrainingSettings    `yaml:"training"`
	Classifier  ClassifierSettings  `yaml:"classifier"`
	Backend     BackendSettings     `yaml:"backend"`
	Preferences PreferencesSettings `yaml:"preferences"`
	Logging     LoggingSettings     `yaml:"logging"`
	Telemetry   TelemetrySettings   `yaml:"telemetry"`
}

// StorageSettings controls where models live and how artifacts are named.
type StorageSettings struct {
	Root           string `yaml:"root"`           // directory holding one subdirectory per model
	CompiledExt    string `yaml:"compiledext"`    // compiled, loadable artifact
	PendingExt     string `yaml:"pendingext"`     // uncompiled trainer output
	PlaceholderExt string `yaml:"placeholderext"` // status file of untrained models
	ImageExt       string `yaml:"imageext"`       // extension of stored training images, also selects the encoder
}

// DatasetSettings controls how training images are written.
type DatasetSettings struct {
	JPEGQuality int `yaml:"jpegquality"` // 1-100
}

// TrainingSettings holds dataset shape requirements and preflight checks.
type TrainingSettings struct {
	MinLabels         int    `yaml:"minlabels"`         // minimum number of label directories
	MinImagesPerLabel int    `yaml:"minimagesperlabel"` // minimum supported images in each label
	MinFreeBytes      uint64 `yaml:"minfreebytes"`      // free space required at the destination, 0 disables
}

// ClassifierSettings controls inference output and model caching.
type ClassifierSettings struct {
	TopK     int           `yaml:"topk"`     // number of predictions returned
	CacheTTL time.Duration `yaml:"cachettl"` // how long a loaded model stays cached
}

// CommandSettings describes an external program.
type CommandSettings struct {
	Command string   `yaml:"command"` // executable name or path
	Args    []string `yaml:"args"`    // extra arguments placed before generated ones
}

// BackendSettings selects the external training and inference tooling.
type BackendSettings struct {
	Kind            string          `yaml:"kind"`            // command or tflite
	Trainer         CommandSettings `yaml:"trainer"`         // training program
	Classifier      CommandSettings `yaml:"classifier"`      // inference program for the command backend
	CompilerCommand string          `yaml:"compilercommand"` // xcrun by default
	Threads         int             `yaml:"threads"`         // tflite interpreter threads, 0 = all cores
}

// PreferencesSettings selects the key-value store used for the model selection.
type PreferencesSettings struct {
	Backend   string `yaml:"backend"`   // memory, file, sqlite, mysql or redis
	Path      string `yaml:"path"`      // file and sqlite backends
	DSN       string `yaml:"dsn"`       // mysql backend
	RedisURL  string `yaml:"redisurl"`  // redis backend
	KeyPrefix string `yaml:"keyprefix"` // redis key namespace
}

// LoggingSettings configures console and file logging.
type LoggingSettings struct {
	Level        string            `yaml:"level"`        // trace, debug, info, warn or error
	FilePath     string            `yaml:"filepath"`     // empty disables file output
	JSON         bool              `yaml:"json"`         // JSON console output
	MaxSize      int               `yaml:"maxsize"`      // MB before rotation
	MaxAge       int               `yaml:"maxage"`       // days to keep rotated files
	ModuleLevels map[string]string `yaml:"modulelevels"` // per-module overrides
}

// TelemetrySettings configures error reporting and the metrics endpoint.
type TelemetrySettings struct {
	Enabled     bool   `yaml:"enabled"`     // send errors to Sentry
	DSN         string `yaml:"dsn"`         // Sentry DSN
	Environment string `yaml:"environment"` // Sentry environment tag
	Listen      string `yaml:"listen"`      // address for the Prometheus endpoint, empty disables
}

// NewViper returns a viper instance with defaults and environment bindings
// applied. Callers may bind flags before passing it to LoadFrom.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaultConfig(v)
	if err := configureEnvironmentVariables(v); err != nil {
		return v, err
	}
	return v, nil
}

// Load reads configuration from the default search paths.
func Load() (*Settings, error) {
	v, err := NewViper()
	if err != nil {
		return nil, err
	}
	return LoadFrom(v, "")
}

// LoadFrom reads the configuration file into v and unmarshals the result.
// configFile overrides the search paths when set. A missing config in the
// search paths is created from the embedded defaults.
func LoadFrom(v *viper.Viper, configFile string) (*Settings, error) {
	if err := readConfig(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if settings.Debug && settings.Logging.Level != "trace" {
		settings.Logging.Level = "debug"
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func readConfig(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("operation", "read-config").
				Context("path", configFile).
				Build()
		}
		return nil
	}

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	err = v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read-config").
			Build()
	}
	return createDefaultConfig(v, filepath.Join(configPaths[0], "config.yaml"))
}

// createDefaultConfig writes the embedded config.yaml to path and reads it.
func createDefaultConfig(v *viper.Viper, path string) error {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read-embedded-config").
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileError(err, filepath.Dir(path), 0)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.FileError(err, path, 0)
	}

	GetLogger().Info("Created default config file", logger.String("path", path))
	v.SetConfigFile(path)
	return v.ReadInConfig()
}

// DefaultConfig returns the embedded default config.yaml.
func DefaultConfig() []byte {
	data, _ := fs.ReadFile(configFiles, "config.yaml")
	return data
}

// SaveYAMLConfig writes settings to configPath through a temporary file
// and rename. Comments in an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}
	if err := os.Rename(tempName, configPath); err != nil {
		return fmt.Errorf("error renaming temporary file: %w", err)
	}
	return nil
}
