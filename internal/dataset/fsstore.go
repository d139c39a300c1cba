package dataset

import (
	"cmp"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/layout"
)

// FSStore stores images as files under a Layout. Names are compared in
// NFC, but paths are built from the entries found on disk, so directories
// written in another normalization form stay reachable.
type FSStore struct {
	layout *layout.Layout
}

// NewFSStore returns a store writing under l.
func NewFSStore(l *layout.Layout) *FSStore {
	return &FSStore{layout: l}
}

// Labels lists the subdirectories of the model's image root.
func (s *FSStore) Labels(ctx context.Context, model string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := s.imageRoot(model)
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fsError(err, "list-labels", root)
	}

	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !isHidden(e.Name()) {
			labels = append(labels, layout.Normalize(e.Name()))
		}
	}
	slices.Sort(labels)
	return labels, nil
}

// CreateLabel creates the label directory and any missing parents.
func (s *FSStore) CreateLabel(ctx context.Context, model, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.labelDir(model, label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fsError(err, "create-label", dir)
	}
	return nil
}

// DeleteLabel removes the label directory recursively.
func (s *FSStore) DeleteLabel(ctx context.Context, model, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.labelDir(model, label)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return errors.NotFound(layout.KindLabel, label)
		}
		return fsError(err, "delete-label", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fsError(err, "delete-label", dir)
	}
	return nil
}

// Put writes the object through a temporary file in the same directory.
func (s *FSStore) Put(ctx context.Context, model, label, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.labelDir(model, label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fsError(err, "put", dir)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fsError(err, "put", dir)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fsError(err, "put", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return fsError(err, "put", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fsError(err, "put", tmpName)
	}

	path := resolve(dir, name)
	if err := os.Rename(tmpName, path); err != nil {
		return fsError(err, "put", path)
	}
	return nil
}

// Get reads the object.
func (s *FSStore) Get(ctx context.Context, model, label, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.imagePath(model, label, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotFound(layout.KindImage, name)
		}
		return nil, fsError(err, "get", path)
	}
	return data, nil
}

// List returns regular files directly under the label directory.
func (s *FSStore) List(ctx context.Context, model, label string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := s.labelDir(model, label)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotFound(layout.KindLabel, label)
		}
		return nil, fsError(err, "list", dir)
	}

	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || isHidden(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		objects = append(objects, Object{
			Name:    layout.Normalize(e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	slices.SortFunc(objects, func(a, b Object) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return objects, nil
}

// Delete removes a single file.
func (s *FSStore) Delete(ctx context.Context, model, label, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.imagePath(model, label, name)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.NotFound(layout.KindImage, name)
		}
		return fsError(err, "delete", path)
	}
	return nil
}

func (s *FSStore) imageRoot(model string) string {
	return filepath.Join(resolve(s.layout.Root(), model), layout.ImagesDirName)
}

func (s *FSStore) labelDir(model, label string) string {
	return resolve(s.imageRoot(model), label)
}

func (s *FSStore) imagePath(model, label, name string) string {
	return resolve(s.labelDir(model, label), name)
}

// resolve returns the path of the entry in dir whose NFC form equals the
// NFC form of name. Without such an entry it returns the NFC path, which
// is where new entries are created.
func resolve(dir, name string) string {
	name = layout.Normalize(name)
	path := filepath.Join(dir, name)
	if _, err := os.Lstat(path); err == nil {
		return path
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return path
	}
	for _, e := range entries {
		if layout.Normalize(e.Name()) == name {
			return filepath.Join(dir, e.Name())
		}
	}
	return path
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

func fsError(err error, op, path string) error {
	return errors.New(err).
		Component("dataset").
		Category(errors.CategoryFileIO).
		Context("operation", op).
		FileContext(path, 0).
		Build()
}

var _ Store = (*FSStore)(nil)
