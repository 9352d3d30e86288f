package dedupe

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithTTL sets how long a key stays owned. Zero or negative keeps keys forever.
func WithTTL(ttl time.Duration) Option {
	return func(d *inMemoryDeduper) {
		if ttl <= 0 {
			ttl = cache.NoExpiration
		}
		d.ttl = ttl
	}
}

// WithCleanupInterval sets how often expired keys are swept.
func WithCleanupInterval(interval time.Duration) Option {
	return func(d *inMemoryDeduper) {
		d.cleanupInterval = interval
	}
}
