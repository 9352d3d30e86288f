// Package repository stores curve job results.
package repository

import (
	"context"

	"github.com/okian/betti/internal/domain/model"
)

// Store provides read/write access to job results.
type Store interface {
	// Put inserts or replaces the result stored under r.ID.
	Put(ctx context.Context, r model.Result) error

	// Get returns the result for id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Result, error)

	// Delete removes the result for id. Deleting an unknown id is not an
	// error.
	Delete(ctx context.Context, id string) error

	// Count returns the number of live results.
	Count(ctx context.Context) int

	// Close stops background work and releases resources.
	Close() error
}
