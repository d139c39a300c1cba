// Package classifier is the training and inference facade: it validates
// training directories, drives the external trainer and classifies images
// with the selected or a named model.
package classifier

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/imagelab/internal/dataset"
	"github.com/tphakala/imagelab/internal/layout"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/mlbackend"
	"github.com/tphakala/imagelab/internal/models"
	"github.com/tphakala/imagelab/internal/observability/metrics"
)

// Defaults for the validation thresholds and inference.
const (
	DefaultMinLabels         = 2
	DefaultMinImagesPerLabel = 5
	DefaultTopK              = 3
	DefaultCacheTTL          = 10 * time.Minute
)

// Classifier wires the trainer, the model loader and the model manager.
type Classifier struct {
	layout    *layout.Layout
	models    *models.Manager
	organizer *dataset.Organizer
	trainer   mlbackend.Trainer
	loader    mlbackend.Loader

	images       dataset.ImageFilter
	minLabels    int
	minImages    int
	minFreeBytes uint64
	topK         int

	cache *cache.Cache
	loads singleflight.Group

	log     logger.Logger
	metrics *metrics.ClassifierMetrics
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithThresholds sets the minimum label count and images per label
// accepted by Validate. Values below 1 keep the defaults.
func WithThresholds(minLabels, minImagesPerLabel int) Option {
	return func(c *Classifier) {
		if minLabels > 0 {
			c.minLabels = minLabels
		}
		if minImagesPerLabel > 0 {
			c.minImages = minImagesPerLabel
		}
	}
}

// WithMinFreeBytes sets the free space required before training. Zero
// disables the check.
func WithMinFreeBytes(n uint64) Option {
	return func(c *Classifier) { c.minFreeBytes = n }
}

// WithTopK sets how many predictions Classify returns.
func WithTopK(k int) Option {
	return func(c *Classifier) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithCacheTTL sets how long a loaded model stays cached after its last use.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Classifier) {
		if ttl > 0 {
			c.cache = newModelCache(ttl)
		}
	}
}

// WithOrganizer enables ValidateModel through the dataset store.
func WithOrganizer(o *dataset.Organizer) Option {
	return func(c *Classifier) { c.organizer = o }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.ClassifierMetrics) Option {
	return func(c *Classifier) { c.metrics = m }
}

// New returns a Classifier. trainer or loader may be nil when the host
// only needs the other half.
func New(mgr *models.Manager, trainer mlbackend.Trainer, loader mlbackend.Loader, opts ...Option) *Classifier {
	c := &Classifier{
		layout:    mgr.Layout(),
		models:    mgr,
		trainer:   trainer,
		loader:    loader,
		minLabels: DefaultMinLabels,
		minImages: DefaultMinImagesPerLabel,
		topK:      DefaultTopK,
		log:       GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.organizer != nil {
		c.images = c.organizer.ImageFilter()
	} else {
		c.images = dataset.NewImageFilter(c.layout.ImageExt())
	}
	if c.cache == nil {
		c.cache = newModelCache(DefaultCacheTTL)
	}
	c.cache.OnEvicted(c.onEvicted)
	return c
}

// Close releases every cached model.
func (c *Classifier) Close() error {
	c.cache.DeleteExpired()
	for key := range c.cache.Items() {
		c.cache.Delete(key)
	}
	c.metrics.SetCachedModels(c.cache.ItemCount())
	return nil
}
