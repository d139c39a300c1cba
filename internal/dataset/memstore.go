package dataset

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/layout"
)

type memObject struct {
	data    []byte
	modTime time.Time
}

// MemoryStore keeps images in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	models map[string]map[string]map[string]memObject
	now    func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		models: make(map[string]map[string]map[string]memObject),
		now:    time.Now,
	}
}

func (s *MemoryStore) Labels(ctx context.Context, model string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	labels := slices.Sorted(maps.Keys(s.models[layout.Normalize(model)]))
	if labels == nil {
		labels = []string{}
	}
	return labels, nil
}

func (s *MemoryStore) CreateLabel(ctx context.Context, model, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labelLocked(model, label, true)
	return nil
}

func (s *MemoryStore) DeleteLabel(ctx context.Context, model, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	labels := s.models[layout.Normalize(model)]
	key := layout.Normalize(label)
	if _, ok := labels[key]; !ok {
		return errors.NotFound(layout.KindLabel, label)
	}
	delete(labels, key)
	return nil
}

func (s *MemoryStore) Put(ctx context.Context, model, label, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	objects := s.labelLocked(model, label, true)
	objects[layout.Normalize(name)] = memObject{data: slices.Clone(data), modTime: s.now()}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, model, label, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.labelLocked(model, label, false)[layout.Normalize(name)]
	if !ok {
		return nil, errors.NotFound(layout.KindImage, name)
	}
	return slices.Clone(obj.data), nil
}

func (s *MemoryStore) List(ctx context.Context, model, label string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, ok := s.models[layout.Normalize(model)][layout.Normalize(label)]
	if !ok {
		return nil, errors.NotFound(layout.KindLabel, label)
	}
	out := make([]Object, 0, len(objects))
	for name, obj := range objects {
		out = append(out, Object{Name: name, Size: int64(len(obj.data)), ModTime: obj.modTime})
	}
	slices.SortFunc(out, func(a, b Object) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, model, label, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	objects := s.labelLocked(model, label, false)
	key := layout.Normalize(name)
	if _, ok := objects[key]; !ok {
		return errors.NotFound(layout.KindImage, name)
	}
	delete(objects, key)
	return nil
}

// labelLocked returns the label's object map, creating it when create is set.
// Callers hold s.mu.
func (s *MemoryStore) labelLocked(model, label string, create bool) map[string]memObject {
	m, l := layout.Normalize(model), layout.Normalize(label)
	labels, ok := s.models[m]
	if !ok {
		if !create {
			return nil
		}
		labels = make(map[string]map[string]memObject)
		s.models[m] = labels
	}
	objects, ok := labels[l]
	if !ok && create {
		objects = make(map[string]memObject)
		labels[l] = objects
	}
	return objects
}

var _ Store = (*MemoryStore)(nil)
