// Package layout computes where models, artifacts and training images live
// under a single storage root. Nothing here touches the file system.
package layout

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ImagesDirName is the per-model directory that holds label subdirectories.
const ImagesDirName = "Images"

// Default artifact extensions.
const (
	DefaultCompiledExt    = "mlmodelc"
	DefaultPendingExt     = "mlmodel"
	DefaultPlaceholderExt = "txt"
	DefaultImageExt       = "jpg"
)

// legacy metadata files removed by the lifecycle manager
const (
	legacyIndexFile   = "models_metadata.json"
	legacyMetadataExt = "json"
)

// Layout maps model, label and file names to paths under Root.
type Layout struct {
	root           string
	compiledExt    string
	pendingExt     string
	placeholderExt string
	imageExt       string
}

// Option configures a Layout.
type Option func(*Layout)

// WithCompiledExt sets the extension of compiled, loadable artifacts.
func WithCompiledExt(ext string) Option {
	return func(l *Layout) { l.compiledExt = cleanExt(ext, DefaultCompiledExt) }
}

// WithPendingExt sets the extension of uncompiled trainer output.
func WithPendingExt(ext string) Option {
	return func(l *Layout) { l.pendingExt = cleanExt(ext, DefaultPendingExt) }
}

// WithPlaceholderExt sets the extension of the placeholder status file.
func WithPlaceholderExt(ext string) Option {
	return func(l *Layout) { l.placeholderExt = cleanExt(ext, DefaultPlaceholderExt) }
}

// WithImageExt sets the extension used for stored training images.
func WithImageExt(ext string) Option {
	return func(l *Layout) { l.imageExt = cleanExt(ext, DefaultImageExt) }
}

// New returns a Layout rooted at root.
func New(root string, opts ...Option) *Layout {
	l := &Layout{
		root:           filepath.Clean(root),
		compiledExt:    DefaultCompiledExt,
		pendingExt:     DefaultPendingExt,
		placeholderExt: DefaultPlaceholderExt,
		imageExt:       DefaultImageExt,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func cleanExt(ext, fallback string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return fallback
	}
	return ext
}

// Root returns the storage root.
func (l *Layout) Root() string { return l.root }

// CompiledExt returns the compiled artifact extension without a dot.
func (l *Layout) CompiledExt() string { return l.compiledExt }

// PendingExt returns the uncompiled artifact extension without a dot.
func (l *Layout) PendingExt() string { return l.pendingExt }

// ImageExt returns the stored image extension without a dot.
func (l *Layout) ImageExt() string { return l.imageExt }

// ModelDir returns <root>/<name>.
func (l *Layout) ModelDir(name string) string {
	return filepath.Join(l.root, Normalize(name))
}

// CompiledArtifactPath returns <root>/<name>/<name>.<compiled>.
func (l *Layout) CompiledArtifactPath(name string) string {
	return l.modelFile(name, l.compiledExt)
}

// PendingArtifactPath returns <root>/<name>/<name>.<pending>, where the
// trainer writes its uncompiled output.
func (l *Layout) PendingArtifactPath(name string) string {
	return l.modelFile(name, l.pendingExt)
}

// PlaceholderPath returns <root>/<name>/<name>.<placeholder>.
func (l *Layout) PlaceholderPath(name string) string {
	return l.modelFile(name, l.placeholderExt)
}

// LegacyMetadataPath returns the per-model metadata file older versions wrote.
func (l *Layout) LegacyMetadataPath(name string) string {
	return l.modelFile(name, legacyMetadataExt)
}

// LegacyIndexPath returns the root-level metadata index older versions wrote.
func (l *Layout) LegacyIndexPath() string {
	return filepath.Join(l.root, legacyIndexFile)
}

// ImageRoot returns <root>/<name>/Images.
func (l *Layout) ImageRoot(name string) string {
	return filepath.Join(l.ModelDir(name), ImagesDirName)
}

// LabelDir returns <root>/<name>/Images/<label>.
func (l *Layout) LabelDir(name, label string) string {
	return filepath.Join(l.ImageRoot(name), Normalize(label))
}

// ImagePath returns <root>/<name>/Images/<label>/<file>.
func (l *Layout) ImagePath(name, label, file string) string {
	return filepath.Join(l.LabelDir(name, label), Normalize(file))
}

// IsPending reports whether path carries the uncompiled artifact extension.
func (l *Layout) IsPending(path string) bool {
	return hasExt(path, l.pendingExt)
}

// IsCompiled reports whether path carries the compiled artifact extension.
func (l *Layout) IsCompiled(path string) bool {
	return hasExt(path, l.compiledExt)
}

func (l *Layout) modelFile(name, ext string) string {
	n := Normalize(name)
	return filepath.Join(l.root, n, n+"."+ext)
}

func hasExt(path, ext string) bool {
	return strings.EqualFold(strings.TrimPrefix(filepath.Ext(strings.TrimRight(path, `/\`)), "."), ext)
}

// Normalize returns name in Unicode NFC so names typed on one platform
// match directory entries read back on another.
func Normalize(name string) string {
	return norm.NFC.String(name)
}
