// Package dataset organizes training images into label directories and
// derives image records by scanning storage.
package dataset

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/imageutil"
	"github.com/tphakala/imagelab/internal/layout"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/observability/metrics"
)

// ImageRecord describes one stored training image. Records are derived
// from storage on every scan and never persisted.
type ImageRecord struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// Organizer manages labels and images of models on top of a Store.
type Organizer struct {
	store    Store
	imageExt string
	filter   ImageFilter
	quality  int
	log      logger.Logger
	metrics  *metrics.DatasetMetrics
	newName  func() string
}

// Option configures an Organizer.
type Option func(*Organizer)

// WithJPEGQuality sets the JPEG quality used by Save.
func WithJPEGQuality(q int) Option {
	return func(o *Organizer) { o.quality = q }
}

// WithImageExt sets the extension of saved images.
func WithImageExt(ext string) Option {
	return func(o *Organizer) {
		if ext = strings.TrimPrefix(ext, "."); ext != "" {
			o.imageExt = ext
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Organizer) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.DatasetMetrics) Option {
	return func(o *Organizer) { o.metrics = m }
}

// NewOrganizer returns an organizer over store.
func NewOrganizer(store Store, opts ...Option) *Organizer {
	o := &Organizer{
		store:    store,
		imageExt: layout.DefaultImageExt,
		quality:  imageutil.DefaultJPEGQuality,
		log:      GetLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.filter = NewImageFilter(o.imageExt)
	if o.newName == nil {
		o.newName = func() string { return uuid.NewString() + "." + o.imageExt }
	}
	return o
}

// Save encodes img in the format of the configured image extension and
// stores it under label with a random name. The label is created if
// needed. Duplicate content is not detected.
func (o *Organizer) Save(ctx context.Context, img image.Image, label, model string) (ImageRecord, error) {
	model, label, err := validateModelLabel(model, label)
	if err != nil {
		return ImageRecord{}, err
	}

	data, err := imageutil.Encode(img, o.imageExt, o.quality)
	if err != nil {
		o.metrics.RecordError("save", err)
		return ImageRecord{}, errors.New(err).
			Component("dataset").
			Category(errors.CategoryConversion).
			ModelContext(model, "").
			Context("label", label).
			Build()
	}
	return o.put(ctx, model, label, data)
}

// SaveBytes decodes data in any supported format and saves it like Save.
func (o *Organizer) SaveBytes(ctx context.Context, data []byte, label, model string) (ImageRecord, error) {
	img, _, err := imageutil.Decode(data)
	if err != nil {
		o.metrics.RecordError("save", err)
		return ImageRecord{}, err
	}
	return o.Save(ctx, img, label, model)
}

func (o *Organizer) put(ctx context.Context, model, label string, data []byte) (ImageRecord, error) {
	if err := o.store.CreateLabel(ctx, model, label); err != nil {
		o.metrics.RecordError("save", err)
		return ImageRecord{}, err
	}

	name := o.newName()
	if err := o.store.Put(ctx, model, label, name, data); err != nil {
		o.metrics.RecordError("save", err)
		return ImageRecord{}, err
	}

	o.metrics.RecordImageSaved(model, len(data))
	o.log.Debug("Image saved",
		logger.String("model", model),
		logger.String("label", label),
		logger.String("filename", name),
		logger.Int("bytes", len(data)))

	return ImageRecord{
		ID:        ImageID(label, name),
		Label:     label,
		Filename:  name,
		CreatedAt: time.Now(),
		Size:      int64(len(data)),
	}, nil
}

// ListImages scans every label of model and returns one record per
// supported image, ordered by label then filename. A model without an
// image root yields an empty result.
func (o *Organizer) ListImages(ctx context.Context, model string) ([]ImageRecord, error) {
	model, err := layout.ValidateName(layout.KindModel, model)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	labels, err := o.store.Labels(ctx, model)
	if err != nil {
		return nil, err
	}

	records := []ImageRecord{}
	for _, label := range labels {
		objects, err := o.store.List(ctx, model, label)
		if err != nil {
			if errors.IsNotFound(err) {
				// label removed during the scan
				continue
			}
			return nil, err
		}
		for _, obj := range objects {
			if !o.isImage(obj.Name) {
				continue
			}
			records = append(records, ImageRecord{
				ID:        ImageID(label, obj.Name),
				Label:     label,
				Filename:  obj.Name,
				CreatedAt: obj.ModTime,
				Size:      obj.Size,
			})
		}
	}

	o.metrics.ObserveScan(time.Since(start).Seconds())
	return records, nil
}

// ListLabels returns the sorted label names of model.
func (o *Organizer) ListLabels(ctx context.Context, model string) ([]string, error) {
	model, err := layout.ValidateName(layout.KindModel, model)
	if err != nil {
		return nil, err
	}
	return o.store.Labels(ctx, model)
}

// AllLabels is ListLabels. Both exist until labels are tracked separately
// from their directories.
func (o *Organizer) AllLabels(ctx context.Context, model string) ([]string, error) {
	return o.ListLabels(ctx, model)
}

// AddLabel creates label under model. Adding an existing label is a no-op.
func (o *Organizer) AddLabel(ctx context.Context, model, label string) error {
	model, label, err := validateModelLabel(model, label)
	if err != nil {
		return err
	}
	if err := o.store.CreateLabel(ctx, model, label); err != nil {
		o.metrics.RecordError("add_label", err)
		return err
	}
	o.metrics.RecordLabelOperation("create")
	o.log.Info("Label added", logger.String("model", model), logger.String("label", label))
	return nil
}

// DeleteLabel removes label and all of its images.
func (o *Organizer) DeleteLabel(ctx context.Context, model, label string) error {
	model, label, err := validateModelLabel(model, label)
	if err != nil {
		return err
	}
	if err := o.store.DeleteLabel(ctx, model, label); err != nil {
		o.metrics.RecordError("delete_label", err)
		return err
	}
	o.metrics.RecordLabelOperation("delete")
	o.log.Info("Label deleted", logger.String("model", model), logger.String("label", label))
	return nil
}

// DeleteImage resolves id by scanning model and removes the image.
func (o *Organizer) DeleteImage(ctx context.Context, model, id string) error {
	rec, err := o.find(ctx, model, id)
	if err != nil {
		o.metrics.RecordError("delete_image", err)
		return err
	}
	if err := o.store.Delete(ctx, model, rec.Label, rec.Filename); err != nil {
		o.metrics.RecordError("delete_image", err)
		return err
	}
	o.metrics.RecordImageDeleted(model)
	o.log.Debug("Image deleted",
		logger.String("model", model),
		logger.String("label", rec.Label),
		logger.String("filename", rec.Filename))
	return nil
}

// ReadImage returns the stored bytes of the image with id.
func (o *Organizer) ReadImage(ctx context.Context, model, id string) ([]byte, error) {
	rec, err := o.find(ctx, model, id)
	if err != nil {
		return nil, err
	}
	return o.store.Get(ctx, model, rec.Label, rec.Filename)
}

// LabelCounts returns the number of supported images per label. Empty
// labels are included with a zero count.
func (o *Organizer) LabelCounts(ctx context.Context, model string) (map[string]int, error) {
	model, err := layout.ValidateName(layout.KindModel, model)
	if err != nil {
		return nil, err
	}
	labels, err := o.store.Labels(ctx, model)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(labels))
	for _, label := range labels {
		objects, err := o.store.List(ctx, model, label)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		n := 0
		for _, obj := range objects {
			if o.isImage(obj.Name) {
				n++
			}
		}
		counts[label] = n
	}
	return counts, nil
}

func (o *Organizer) find(ctx context.Context, model, id string) (ImageRecord, error) {
	records, err := o.ListImages(ctx, model)
	if err != nil {
		return ImageRecord{}, err
	}
	id = strings.ToLower(strings.TrimSpace(id))
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return ImageRecord{}, errors.NotFound(layout.KindImage, id)
}

// ImageFilter returns the predicate used to count and list images.
func (o *Organizer) ImageFilter() ImageFilter { return o.filter }

func (o *Organizer) isImage(name string) bool {
	return o.filter.Match(name)
}

func validateModelLabel(model, label string) (string, string, error) {
	m, err := layout.ValidateName(layout.KindModel, model)
	if err != nil {
		return "", "", err
	}
	l, err := layout.ValidateName(layout.KindLabel, label)
	if err != nil {
		return "", "", err
	}
	return m, l, nil
}
