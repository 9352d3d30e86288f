// Package dedupe tracks idempotency keys so identical curve requests share one job.
package dedupe

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Deduper maps request keys to the job that owns them.
type Deduper interface {
	// SeenAndRecord atomically records key -> id unless the key is already
	// owned. It returns the owning job id and true when the key was seen.
	SeenAndRecord(ctx context.Context, key, id string) (string, bool)

	// Unrecord releases a key so the work can be resubmitted, e.g. after
	// queue backpressure.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper keeps keys in a go-cache with expiry.
type inMemoryDeduper struct {
	cache           *cache.Cache
	ttl             time.Duration
	cleanupInterval time.Duration
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		ttl:             time.Hour,
		cleanupInterval: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.cache = cache.New(d.ttl, d.cleanupInterval)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key, id string) (string, bool) {
	for {
		if err := d.cache.Add(key, id, cache.DefaultExpiration); err == nil {
			return id, false
		}
		// Add fails only while a live entry exists; it may expire before Get.
		if owner, ok := d.cache.Get(key); ok {
			return owner.(string), true //nolint:forcetypeassert // only strings are stored
		}
	}
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.cache.Delete(key)
}

// Size returns the number of live keys, expired-but-unswept ones included.
func (d *inMemoryDeduper) Size() int64 {
	return int64(d.cache.ItemCount())
}
