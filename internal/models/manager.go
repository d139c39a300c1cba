// Package models manages the lifecycle of classifier models: placeholder
// creation, installing trained artifacts, listing, deletion and the
// persisted selection.
package models

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/tphakala/imagelab/internal/diskmanager"
	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/layout"
	"github.com/tphakala/imagelab/internal/logger"
	"github.com/tphakala/imagelab/internal/mlbackend"
	"github.com/tphakala/imagelab/internal/observability/metrics"
)

// Status is inferred from the files present in a model directory.
type Status string

const (
	StatusPlaceholder Status = "placeholder"
	StatusTrained     Status = "trained"
)

// Install sources reported to metrics.
const (
	sourceTrained  = "trained"
	sourceExternal = "external"
)

// Entry is a view of one model directory.
type Entry struct {
	Name         string `json:"name"`
	Status       Status `json:"status"`
	ArtifactPath string `json:"artifact_path"`
	Size         int64  `json:"size"`
	Selected     bool   `json:"selected"`
}

// Loadable reports whether the compiled artifact exists.
func (e Entry) Loadable() bool {
	return e.Status == StatusTrained
}

// Manager implements the model lifecycle on top of a Layout.
type Manager struct {
	layout    *layout.Layout
	selection *Selection
	compiler  mlbackend.Compiler
	log       logger.Logger
	metrics   *metrics.ModelMetrics

	writePlaceholder func(path, name string) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithCompiler sets the compiler used for uncompiled artifacts.
func WithCompiler(c mlbackend.Compiler) Option {
	return func(m *Manager) { m.compiler = c }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mm *metrics.ModelMetrics) Option {
	return func(m *Manager) { m.metrics = mm }
}

// NewManager returns a Manager storing models under l and the selection
// in sel.
func NewManager(l *layout.Layout, sel *Selection, opts ...Option) *Manager {
	m := &Manager{
		layout:    l,
		selection: sel,
		log:       GetLogger(),

		writePlaceholder: writePlaceholder,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Layout returns the storage layout.
func (m *Manager) Layout() *layout.Layout {
	return m.layout
}

// CreateEmpty creates a placeholder model with an empty image root. An
// existing model directory is left untouched and AlreadyExists returned.
// A directory created by a failed call is removed again.
func (m *Manager) CreateEmpty(ctx context.Context, name string) (err error) {
	defer func() { m.metrics.RecordOperation("create", err) }()

	name, err = m.layout.ValidateModelName(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(m.layout.Root(), 0o755); err != nil {
		return m.fileError(err, "create", m.layout.Root())
	}
	dir := m.layout.ModelDir(name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return errors.AlreadyExists(layout.KindModel, name)
		}
		return m.fileError(err, "create", dir)
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				m.log.Warn("Failed to remove partial model directory",
					logger.String("path", dir), logger.Error(rmErr))
			}
		}
	}()

	if err := os.MkdirAll(m.layout.ImageRoot(name), 0o755); err != nil {
		return m.fileError(err, "create", m.layout.ImageRoot(name))
	}
	if err := m.writePlaceholder(m.layout.PlaceholderPath(name), name); err != nil {
		return m.fileError(err, "create", m.layout.PlaceholderPath(name))
	}

	m.log.Info("Model created", logger.String("model", name))
	return nil
}

// SaveTrained installs the trainer output from as the artifact of name,
// compiling it first when it is uncompiled. The placeholder and the
// uncompiled output are removed and name becomes the selected model.
func (m *Manager) SaveTrained(ctx context.Context, from, name string) (err error) {
	defer func() { m.metrics.RecordOperation("save_trained", err) }()
	return m.install(ctx, from, name, sourceTrained)
}

// SaveFromExternal installs an artifact produced elsewhere. The model
// directory is created if needed and source is left in place.
func (m *Manager) SaveFromExternal(ctx context.Context, source, name string) (err error) {
	defer func() { m.metrics.RecordOperation("save_external", err) }()
	return m.install(ctx, source, name, sourceExternal)
}

func (m *Manager) install(ctx context.Context, from, name, source string) error {
	name, err := m.layout.ValidateModelName(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(from); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.New(err).
				Component("models").
				Category(errors.CategoryNotFound).
				ModelContext(name, from).
				Context("operation", "install").
				Build()
		}
		return m.fileError(err, "install", from)
	}

	dir := m.layout.ModelDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return m.fileError(err, "install", dir)
	}

	compiled := from
	if m.layout.IsPending(from) {
		tmp, err := os.MkdirTemp(dir, ".compile-")
		if err != nil {
			return m.fileError(err, "compile", dir)
		}
		defer func() { _ = os.RemoveAll(tmp) }()

		compiled, err = m.compile(ctx, from, tmp, name)
		if err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	dst := m.layout.CompiledArtifactPath(name)
	if err := installArtifact(compiled, dst); err != nil {
		return errors.New(err).
			Component("models").
			Category(errors.CategoryFileIO).
			ModelContext(name, dst).
			Context("operation", "install").
			Build()
	}

	if err := removeIfExists(m.layout.PlaceholderPath(name)); err != nil {
		m.log.Warn("Failed to remove placeholder",
			logger.String("model", name), logger.Error(err))
	}
	if source == sourceTrained && m.layout.IsPending(from) {
		if err := removeIfExists(from); err != nil {
			m.log.Warn("Failed to remove training output",
				logger.String("model", name), logger.String("path", from), logger.Error(err))
		}
	}

	if err := m.selection.Set(ctx, name); err != nil {
		return err
	}

	m.metrics.RecordInstall(source)
	m.log.Info("Model installed",
		logger.String("model", name),
		logger.String("source", source),
		logger.String("artifact", dst))
	return nil
}

func (m *Manager) compile(ctx context.Context, from, dir, name string) (string, error) {
	if m.compiler == nil {
		return "", errors.Newf("no compiler configured for uncompiled artifact").
			Component("models").
			Category(errors.CategoryConfiguration).
			ModelContext(name, from).
			Build()
	}

	start := time.Now()
	out, err := m.compiler.Compile(ctx, from, dir)
	m.metrics.RecordCompile(time.Since(start).Seconds(), err)
	if err != nil {
		return "", errors.New(err).
			Component("models").
			Category(errors.CategoryExternalOperation).
			ModelContext(name, from).
			Timing("compile", time.Since(start)).
			Build()
	}
	m.log.Debug("Artifact compiled",
		logger.String("model", name),
		logger.String("output", out),
		logger.Duration("duration", time.Since(start)))
	return out, nil
}

// Current returns the selected model if it is loadable. Otherwise the
// first loadable model in name order is selected and returned.
func (m *Manager) Current(ctx context.Context) (Entry, error) {
	name, ok, err := m.selection.Get(ctx)
	if err != nil {
		return Entry{}, err
	}
	if ok {
		if e, err := m.Get(ctx, name); err == nil && e.Loadable() {
			return e, nil
		}
	}

	entries, err := m.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if !e.Loadable() {
			continue
		}
		if err := m.selection.Set(ctx, e.Name); err != nil {
			return Entry{}, err
		}
		m.metrics.RecordSelectionFallback()
		m.log.Info("Selected model unavailable, falling back",
			logger.String("previous", name),
			logger.String("model", e.Name))
		e.Selected = true
		return e, nil
	}

	return Entry{}, errors.Newf("no loadable model available").
		Component("models").
		Category(errors.CategoryNotFound).
		Context("kind", layout.KindModel).
		Build()
}

// List returns all model directories sorted by name.
func (m *Manager) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(m.layout.Root())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, m.fileError(err, "list", m.layout.Root())
	}

	selected, _, err := m.selection.Get(ctx)
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	counts := map[string]int{string(StatusPlaceholder): 0, string(StatusTrained): 0}
	for _, d := range dirents {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		e := m.entry(layout.Normalize(d.Name()))
		e.Selected = e.Name == selected
		counts[string(e.Status)]++
		entries = append(entries, e)
	}
	m.metrics.SetModelCounts(counts)
	return entries, nil
}

// Get returns the entry of name.
func (m *Manager) Get(ctx context.Context, name string) (Entry, error) {
	name, err := m.existing(ctx, name)
	if err != nil {
		return Entry{}, err
	}
	e := m.entry(name)
	if selected, ok, err := m.selection.Get(ctx); err == nil && ok {
		e.Selected = selected == name
	}
	return e, nil
}

// Select makes name the selected model.
func (m *Manager) Select(ctx context.Context, name string) (err error) {
	defer func() { m.metrics.RecordOperation("select", err) }()

	name, err = m.existing(ctx, name)
	if err != nil {
		return err
	}
	if err := m.selection.Set(ctx, name); err != nil {
		return err
	}
	m.log.Info("Model selected", logger.String("model", name))
	return nil
}

// Delete removes the model directory. The selection is cleared only when
// it pointed at name.
func (m *Manager) Delete(ctx context.Context, name string) (err error) {
	defer func() { m.metrics.RecordOperation("delete", err) }()

	name, err = m.existing(ctx, name)
	if err != nil {
		return err
	}
	dir := m.layout.ModelDir(name)
	if err := os.RemoveAll(dir); err != nil {
		return m.fileError(err, "delete", dir)
	}

	cleared, err := m.selection.ClearIf(ctx, name)
	if err != nil {
		return err
	}
	m.log.Info("Model deleted",
		logger.String("model", name),
		logger.Bool("selection_cleared", cleared))
	return nil
}

// CleanupLegacy removes metadata files written by older versions. Every
// removal is attempted and failures are joined into the returned error.
func (m *Manager) CleanupLegacy(ctx context.Context) error {
	paths := []string{m.layout.LegacyIndexPath()}

	dirents, err := os.ReadDir(m.layout.Root())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return m.fileError(err, "cleanup", m.layout.Root())
	}
	for _, d := range dirents {
		if d.IsDir() && !strings.HasPrefix(d.Name(), ".") {
			paths = append(paths, m.layout.LegacyMetadataPath(d.Name()))
		}
	}

	var errs []error
	removed := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		switch err := os.Remove(p); {
		case err == nil:
			removed++
		case errors.Is(err, fs.ErrNotExist):
		default:
			errs = append(errs, errors.FileError(err, p, 0))
		}
	}

	if removed > 0 {
		m.log.Info("Removed legacy metadata", logger.Int("files", removed))
	}
	return errors.Join(errs...)
}

func (m *Manager) existing(ctx context.Context, name string) (string, error) {
	name, err := layout.ValidateName(layout.KindModel, name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(m.layout.ModelDir(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errors.NotFound(layout.KindModel, name)
		}
		return "", m.fileError(err, "stat", m.layout.ModelDir(name))
	}
	if !info.IsDir() {
		return "", errors.NotFound(layout.KindModel, name)
	}
	return name, nil
}

func (m *Manager) entry(name string) Entry {
	e := Entry{
		Name:         name,
		Status:       StatusPlaceholder,
		ArtifactPath: m.layout.CompiledArtifactPath(name),
	}
	if _, err := os.Stat(e.ArtifactPath); err == nil {
		e.Status = StatusTrained
	}
	if size, err := diskmanager.DirSize(m.layout.ModelDir(name)); err == nil {
		e.Size = size
	}
	return e
}

func (m *Manager) fileError(err error, op, path string) error {
	return errors.New(err).
		Component("models").
		Category(errors.CategoryFileIO).
		FileContext(path, 0).
		Context("operation", op).
		Build()
}

func writePlaceholder(path, name string) error {
	text := fmt.Sprintf("Model %q has no trained artifact yet.\nCreated %s.\n",
		name, time.Now().UTC().Format(time.RFC3339))
	return os.WriteFile(path, []byte(text), 0o644)
}

func removeIfExists(path string) error {
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
