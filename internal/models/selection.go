package models

import (
	"context"

	"github.com/tphakala/imagelab/internal/prefs"
)

// SelectionKey is the preference key holding the selected model name.
const SelectionKey = "selected_model"

// Selection is the persisted "currently selected model" pointer. It is not
// validated on write; readers check that the model still exists.
type Selection struct {
	store prefs.Store
	key   string
}

// NewSelection stores the pointer in store under SelectionKey.
func NewSelection(store prefs.Store) *Selection {
	return &Selection{store: store, key: SelectionKey}
}

// Get returns the selected name and whether one is set.
func (s *Selection) Get(ctx context.Context) (string, bool, error) {
	name, ok, err := s.store.Get(ctx, s.key)
	if err != nil || !ok || name == "" {
		return "", false, err
	}
	return name, true, nil
}

// Set points the selection at name.
func (s *Selection) Set(ctx context.Context, name string) error {
	return s.store.Set(ctx, s.key, name)
}

// Clear removes the selection.
func (s *Selection) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, s.key)
}

// ClearIf removes the selection only when it points at name and reports
// whether it did.
func (s *Selection) ClearIf(ctx context.Context, name string) (bool, error) {
	current, ok, err := s.Get(ctx)
	if err != nil || !ok || current != name {
		return false, err
	}
	return true, s.Clear(ctx)
}
