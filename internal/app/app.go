// Package app builds the imagelab component graph from settings.
package app

import (
	"context"
	"path/filepath"

	"github.com/tphakala/imagelab/internal/buildinfo"
	"github.com/tphakala/imagelab/internal/classifier"
	"github.com/tphakala/imagelab/internal/conf"
	"github.com/tphakala/imagelab/internal/dataset"
	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/layout"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/mlbackend"
	"github.com/tphakala/imagelab/internal/mlbackend/command"
	"github.com/tphakala/imagelab/internal/mlbackend/tflite"
	"github.com/tphakala/imagelab/internal/models"
	"github.com/tphakala/imagelab/internal/observability"
	"github.com/tphakala/imagelab/internal/prefs"
	"github.com/tphakala/imagelab/internal/telemetry"
)

// Backends are the external collaborators. Nil fields are built from
// the backend settings.
type Backends struct {
	Trainer  mlbackend.Trainer
	Compiler mlbackend.Compiler
	Loader   mlbackend.Loader
}

// App holds the wired components.
type App struct {
	Settings   *conf.Settings
	Log        logger.Logger
	Layout     *layout.Layout
	Prefs      prefs.Store
	Organizer  *dataset.Organizer
	Models     *models.Manager
	Classifier *classifier.Classifier
	Metrics    *observability.Metrics

	central           *logger.CentralLogger
	endpoint          *observability.Endpoint
	metricsAddr       string
	shutdownTelemetry func()
}

type options struct {
	backends Backends
	build    *buildinfo.Context
	central  *logger.CentralLogger
	prefs    prefs.Store
}

// Option configures New.
type Option func(*options)

// WithBackends overrides the collaborators built from settings.
func WithBackends(b Backends) Option {
	return func(o *options) { o.backends = b }
}

// WithBuildInfo sets the build metadata reported to telemetry.
func WithBuildInfo(b *buildinfo.Context) Option {
	return func(o *options) { o.build = b }
}

// WithLogger uses cl instead of building a logger from settings.
func WithLogger(cl *logger.CentralLogger) Option {
	return func(o *options) { o.central = cl }
}

// WithPrefs uses store instead of opening the configured backend.
func WithPrefs(store prefs.Store) Option {
	return func(o *options) { o.prefs = store }
}

// New wires settings into a ready App. Close releases everything it opened.
func New(ctx context.Context, settings *conf.Settings, opts ...Option) (_ *App, err error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	central := o.central
	if central == nil {
		central, err = NewLogger(settings)
		if err != nil {
			return nil, err
		}
	}
	logger.SetGlobal(central)
	log := central.Module("app")

	a := &App{Settings: settings, Log: log, central: central}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.shutdownTelemetry, err = telemetry.Init(settings.Telemetry,
		telemetry.Options{
			Release: o.build.Release(),
			Roots:   scrubRoots(settings),
		}, central.Module("telemetry"))
	if err != nil {
		log.Warn("Error telemetry unavailable", logger.Error(err))
		err = nil
	}

	a.Metrics, err = observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	a.Prefs = o.prefs
	if a.Prefs == nil {
		a.Prefs, err = prefs.Open(ctx, settings.Preferences, central.Module("prefs"))
		if err != nil {
			return nil, err
		}
	}

	a.Layout = layout.New(settings.Storage.Root,
		layout.WithCompiledExt(settings.Storage.CompiledExt),
		layout.WithPendingExt(settings.Storage.PendingExt),
		layout.WithPlaceholderExt(settings.Storage.PlaceholderExt),
		layout.WithImageExt(settings.Storage.ImageExt))

	backends := buildBackends(settings, o.backends, central)

	a.Organizer = dataset.NewOrganizer(dataset.NewFSStore(a.Layout),
		dataset.WithJPEGQuality(settings.Dataset.JPEGQuality),
		dataset.WithImageExt(settings.Storage.ImageExt),
		dataset.WithLogger(central.Module("dataset")),
		dataset.WithMetrics(a.Metrics.Dataset))

	a.Models = models.NewManager(a.Layout, models.NewSelection(a.Prefs),
		models.WithCompiler(backends.Compiler),
		models.WithLogger(central.Module("models")),
		models.WithMetrics(a.Metrics.Models))

	a.Classifier = classifier.New(a.Models, backends.Trainer, backends.Loader,
		classifier.WithThresholds(settings.Training.MinLabels, settings.Training.MinImagesPerLabel),
		classifier.WithMinFreeBytes(settings.Training.MinFreeBytes),
		classifier.WithTopK(settings.Classifier.TopK),
		classifier.WithCacheTTL(settings.Classifier.CacheTTL),
		classifier.WithOrganizer(a.Organizer),
		classifier.WithLogger(central.Module("classifier")),
		classifier.WithMetrics(a.Metrics.Classifier))

	if settings.Telemetry.Listen != "" {
		a.endpoint = observability.NewEndpoint(settings.Telemetry.Listen, a.Metrics, central.Module("observability"))
		a.metricsAddr, err = a.endpoint.Start()
		if err != nil {
			return nil, errors.New(err).
				Component("app").
				Category(errors.CategoryConfiguration).
				Context("listen", settings.Telemetry.Listen).
				Build()
		}
	}

	log.Debug("Application ready",
		logger.String("root", a.Layout.Root()),
		logger.String("backend", settings.Backend.Kind),
		logger.String("preferences", settings.Preferences.Backend))
	return a, nil
}

// MetricsAddr returns the bound metrics address, empty when disabled.
func (a *App) MetricsAddr() string {
	return a.metricsAddr
}

// Close stops the endpoint, releases cached models and the preference
// store, and flushes logs and telemetry.
func (a *App) Close() error {
	var errs []error
	if a.endpoint != nil {
		errs = append(errs, a.endpoint.Stop())
	}
	if a.Classifier != nil {
		errs = append(errs, a.Classifier.Close())
	}
	if a.Prefs != nil {
		errs = append(errs, a.Prefs.Close())
	}
	if a.shutdownTelemetry != nil {
		a.shutdownTelemetry()
	}
	if a.central != nil {
		errs = append(errs, a.central.Flush())
	}
	return errors.Join(errs...)
}

// NewLogger builds the central logger from the logging settings.
func NewLogger(settings *conf.Settings) (*logger.CentralLogger, error) {
	ls := settings.Logging
	level := ls.Level
	if settings.Debug {
		level = "debug"
	}
	cfg := &logger.LoggingConfig{
		DefaultLevel: level,
		Console: &logger.ConsoleOutput{
			Enabled: true,
			Level:   level,
			JSON:    ls.JSON,
		},
		FileOutput: &logger.FileOutput{
			Enabled: ls.FilePath != "",
			Path:    ls.FilePath,
			MaxSize: ls.MaxSize,
			MaxAge:  ls.MaxAge,
			Level:   level,
		},
		ModuleLevels: ls.ModuleLevels,
	}
	return logger.NewCentralLogger(cfg)
}

func buildBackends(settings *conf.Settings, b Backends, central *logger.CentralLogger) Backends {
	bs := settings.Backend
	if b.Trainer == nil {
		b.Trainer = command.NewTrainer(command.Command{
			Path: bs.Trainer.Command,
			Args: bs.Trainer.Args,
		}, central.Module("trainer"))
	}
	if b.Compiler == nil && bs.Kind != conf.BackendTFLite {
		b.Compiler = command.NewCompiler(command.Command{Path: bs.CompilerCommand},
			command.WithCompiledExt(settings.Storage.CompiledExt),
			command.WithCompilerLogger(central.Module("compiler")))
	}
	if b.Loader == nil {
		switch bs.Kind {
		case conf.BackendTFLite:
			b.Loader = tflite.NewLoader(bs.Threads, central.Module("tflite"))
		default:
			b.Loader = command.NewLoader(command.Command{
				Path: bs.Classifier.Command,
				Args: bs.Classifier.Args,
			}, central.Module("inference"))
		}
	}
	return b
}

// scrubRoots lists the directories hidden from telemetry reports.
func scrubRoots(settings *conf.Settings) []string {
	roots := []string{settings.Storage.Root}
	if p := settings.Preferences.Path; p != "" {
		roots = append(roots, filepath.Dir(p))
	}
	return roots
}
