package dataset

import (
	"context"
	"time"
)

// Object describes one stored file.
type Object struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Store is a blob store addressed by (model, label, filename). Labels are
// first-class so an empty label can exist.
type Store interface {
	// Labels returns the sorted label names of model. A model with no image
	// root yields an empty slice and no error.
	Labels(ctx context.Context, model string) ([]string, error)
	// CreateLabel creates the label if it does not exist.
	CreateLabel(ctx context.Context, model, label string) error
	// DeleteLabel removes the label and everything under it.
	DeleteLabel(ctx context.Context, model, label string) error
	// Put writes data, replacing any existing object of the same name.
	Put(ctx context.Context, model, label, name string, data []byte) error
	// Get returns the object's bytes.
	Get(ctx context.Context, model, label, name string) ([]byte, error)
	// List returns the objects directly under label, sorted by name.
	List(ctx context.Context, model, label string) ([]Object, error)
	// Delete removes a single object.
	Delete(ctx context.Context, model, label, name string) error
}
