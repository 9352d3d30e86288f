package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/okian/betti/internal/domain/model"
	"github.com/okian/betti/pkg/metrics"
)

const memoryBackend = "memory"

// MemoryStore keeps results in a go-cache with expiry.
type MemoryStore struct {
	cfg   settings
	cache *cache.Cache

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewMemoryStore constructs an in-memory store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	ttl := cfg.ttl
	if ttl == 0 {
		ttl = cache.NoExpiration
	}
	s := &MemoryStore{
		cfg:      cfg,
		cache:    cache.New(ttl, cleanupInterval(ttl)),
		stopChan: make(chan struct{}),
	}
	startMetricsUpdater(ctx, &s.wg, s.stopChan, cfg.metricsUpdateInterval, s.Count)
	return s
}

// cleanupInterval sweeps expired entries a few times per TTL.
func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if iv := ttl / 4; iv > time.Second {
		return iv
	}
	return time.Second
}

// Put implements Store.Put.
func (s *MemoryStore) Put(ctx context.Context, r model.Result) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ID == "" {
		metrics.RecordStoreError(memoryBackend, "put")
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	s.cache.Set(r.ID, r, cache.DefaultExpiration)
	metrics.RecordStoreWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return model.Result{}, err
	}
	v, ok := s.cache.Get(id)
	metrics.RecordStoreReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	if !ok {
		return model.Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return v.(model.Result), nil //nolint:forcetypeassert // only results are stored
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Delete(id)
	return nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	return s.cache.ItemCount()
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// startMetricsUpdater publishes the record count every interval until ctx
// is done or stop is closed.
func startMetricsUpdater(ctx context.Context, wg *sync.WaitGroup, stop <-chan struct{}, interval time.Duration, count func(context.Context) int) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				metrics.UpdateStoreRecords(count(ctx))
			}
		}
	}()
}
