package prefs

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps preferences in process memory.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore returns an empty store whose entries never expire.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.c.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

func (s *MemoryStore) Close() error {
	s.c.Flush()
	return nil
}

var _ Store = (*MemoryStore)(nil)
