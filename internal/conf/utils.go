package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/imagelab/internal/errors"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// most specific first. The first entry is where a default config is created.
func GetDefaultConfigPaths() ([]string, error) {
	if dir := os.Getenv(envPrefix + "_CONFIG_DIR"); dir != "" {
		return []string{dir}, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	switch runtime.GOOS {
	case osWindows:
		return []string{
			filepath.Join(homeDir, "AppData", "Roaming", appName),
			".",
		}, nil
	default:
		return []string{
			filepath.Join(homeDir, ".config", appName),
			".",
		}, nil
	}
}
