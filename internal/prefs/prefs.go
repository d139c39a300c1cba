// Package prefs provides small key-value preference stores used to persist
// settings such as the selected model.
package prefs

import (
	"context"

	"github.com/tphakala/imagelab/internal/conf"
	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/logger"
)

// Store is a string key-value store. Writes are last-writer-wins.
type Store interface {
	// Get returns the value of key and whether it was set.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Open returns the backend selected by settings.
func Open(ctx context.Context, settings conf.PreferencesSettings, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.Module("prefs")

	switch settings.Backend {
	case conf.PrefsMemory:
		return NewMemoryStore(), nil
	case conf.PrefsFile, "":
		return NewFileStore(settings.Path), nil
	case conf.PrefsSQLite:
		return OpenSQLite(settings.Path, log)
	case conf.PrefsMySQL:
		return OpenMySQL(settings.DSN, log)
	case conf.PrefsRedis:
		return OpenRedis(ctx, settings.RedisURL, settings.KeyPrefix)
	default:
		return nil, errors.Newf("unknown preferences backend %q", settings.Backend).
			Component("prefs").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

func backendError(err error, backend, op string) error {
	return errors.New(err).
		Component("prefs").
		Category(errors.CategoryDatabase).
		Context("backend", backend).
		Context("operation", op).
		Build()
}
