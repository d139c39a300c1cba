package classifier

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/mlbackend"
)

// newModelCache returns a cache without a janitor goroutine; expired
// entries are evicted on the next load.
func newModelCache(ttl time.Duration) *cache.Cache {
	return cache.New(ttl, 0)
}

// cachedModel guards a loaded model against being closed by eviction
// while a prediction is running.
type cachedModel struct {
	mu     sync.RWMutex
	model  mlbackend.Model
	path   string
	closed bool
}

// predict reports ok=false when the model was closed before it could run.
func (m *cachedModel) predict(ctx context.Context, img *image.RGBA) ([]mlbackend.Prediction, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, nil
	}
	preds, err := m.model.Predict(ctx, img)
	return preds, true, err
}

func (m *cachedModel) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.model.Close()
}

func cacheKey(path string, modTime time.Time) string {
	return fmt.Sprintf("%s|%d", path, modTime.UnixNano())
}

// load returns the cached model for path at modTime, loading it once for
// concurrent callers.
func (c *Classifier) load(ctx context.Context, path string, modTime time.Time) (*cachedModel, error) {
	key := cacheKey(path, modTime)
	if v, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheHit()
		c.cache.SetDefault(key, v)
		return v.(*cachedModel), nil
	}
	c.metrics.RecordCacheMiss()

	v, err, _ := c.loads.Do(key, func() (any, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		c.cache.DeleteExpired()
		c.invalidate(path)

		start := time.Now()
		model, err := c.loader.Load(ctx, path)
		c.metrics.RecordModelLoad(err)
		if err != nil {
			return nil, errors.New(err).
				Component("classifier").
				Category(errors.CategoryModelLoad).
				ModelContext("", path).
				Timing("load", time.Since(start)).
				Build()
		}

		cm := &cachedModel{model: model, path: path}
		c.cache.SetDefault(key, cm)
		c.metrics.SetCachedModels(c.cache.ItemCount())
		c.log.Debug("Model loaded",
			logger.String("artifact", path),
			logger.Duration("duration", time.Since(start)))
		return cm, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cachedModel), nil
}

// invalidate evicts every cached version of the artifact at path.
func (c *Classifier) invalidate(path string) {
	prefix := path + "|"
	for key := range c.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
		}
	}
	c.metrics.SetCachedModels(c.cache.ItemCount())
}

func (c *Classifier) onEvicted(_ string, v any) {
	cm, ok := v.(*cachedModel)
	if !ok {
		return
	}
	if err := cm.close(); err != nil {
		c.log.Warn("Failed to close model",
			logger.String("artifact", cm.path),
			logger.Error(err))
	}
}
