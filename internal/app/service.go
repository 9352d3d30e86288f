// Package service wires the curve pipeline: request resolution, idempotency,
// the job queue, workers and the result store.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/okian/betti/internal/adapters/mq/queue"
	workerpool "github.com/okian/betti/internal/adapters/mq/worker"
	"github.com/okian/betti/internal/adapters/repository"
	"github.com/okian/betti/internal/config"
	"github.com/okian/betti/internal/domain/betti"
	"github.com/okian/betti/internal/domain/dedupe"
	"github.com/okian/betti/internal/domain/model"
	"github.com/okian/betti/pkg/logger"
	"github.com/okian/betti/pkg/metrics"
)

// Service implements the API dependencies for the curve service.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	deduper     dedupe.Deduper
	queue       *jobqueue.InMemoryQueue
	pool        *workerpool.Pool
	discretizer betti.Discretizer
	computer    *curveComputer

	// Configuration
	workerCount      int
	queueSize        int
	dimensionWorkers int
	gridPoints       int
	dimensions       []int
	maxIntervals     int
	maxGridPoints    int
	resultTTL        time.Duration
	storeBackend     string
	storePath        string

	started bool

	logger logger.Logger
}

// New constructs a Service. Compute works right away; Submit and Result
// need Start.
func New(opts ...Option) *Service {
	defaults := config.New()
	s := &Service{
		workerCount:      runtime.NumCPU(),
		queueSize:        defaults.QueueSize,
		dimensionWorkers: defaults.DimensionWorkers,
		gridPoints:       defaults.GridPoints,
		dimensions:       defaults.Dimensions,
		maxIntervals:     defaults.MaxIntervals,
		maxGridPoints:    defaults.MaxGridPoints,
		resultTTL:        time.Duration(defaults.ResultTTLSeconds) * time.Second,
		storeBackend:     config.StoreMemory,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.discretizer == nil {
		s.discretizer = betti.NewStabbing(betti.WithParallelism(s.dimensionWorkers))
	}
	s.computer = &curveComputer{discretizer: s.discretizer}
	return s
}

// Start opens the store and starts the worker pool. Background work is
// detached from ctx cancellation; use Stop to end it.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting curve service...")
	bg := context.WithoutCancel(ctx)

	if s.store == nil {
		store, err := s.openStore(bg)
		if err != nil {
			return err
		}
		s.store = store
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithTTL(s.resultTTL))
	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.computer, s.store)
	s.pool.Start(bg)

	s.started = true
	s.logger.Info(ctx, "curve service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("gridPoints", s.gridPoints),
		logger.Ints("dimensions", s.dimensions),
		logger.String("store", s.storeBackend),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	opts := []repository.Option{
		repository.WithTTL(s.resultTTL),
		repository.WithLogger(s.logger.Named("store")),
	}
	switch s.storeBackend {
	case config.StoreBadger:
		store, err := repository.OpenBadgerStore(ctx, s.storePath, opts...)
		if err != nil {
			return nil, fmt.Errorf("open result store: %w", err)
		}
		s.logger.Info(ctx, "using badger store", logger.String("path", s.storePath))
		return store, nil
	case config.StoreMemory, "":
		s.logger.Info(ctx, "using memory store")
		return repository.NewMemoryStore(ctx, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, s.storeBackend)
	}
}

// Stop drains queued jobs and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping curve service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.store = nil

	s.started = false
	s.logger.Info(ctx, "curve service stopped")
	return errors.Join(errs...)
}

// Submit queues a curve job and returns its id. Identical work already
// known to the service is not queued again; its id comes back with
// duplicate set.
func (s *Service) Submit(ctx context.Context, req model.Request) (string, bool, error) { //nolint:gocritic // hugeParam: request is read-only
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", false, ErrNotStarted
	}

	job, err := s.resolve(req)
	if err != nil {
		return "", false, err
	}
	job.ID = uuid.NewString()
	job.SubmittedAt = time.Now().UTC()

	if owner, seen := s.deduper.SeenAndRecord(ctx, job.Key, job.ID); seen {
		metrics.RecordJobDuplicate()
		s.logger.Debug(ctx, "duplicate curve request", logger.String("job_id", owner))
		return owner, true, nil
	}

	pending := model.Result{
		ID:          job.ID,
		Status:      model.StatusPending,
		Intervals:   job.Diagram.Len(),
		SubmittedAt: job.SubmittedAt,
	}
	if err := s.store.Put(ctx, pending); err != nil {
		s.deduper.Unrecord(ctx, job.Key)
		return "", false, fmt.Errorf("record job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, job.Key)
		// The id is never handed out, so its pending record must not linger.
		if derr := s.store.Delete(context.WithoutCancel(ctx), job.ID); derr != nil {
			s.logger.Warn(ctx, "failed to drop rejected job", logger.String("job_id", job.ID), logger.Error(derr))
		}

		if errors.Is(err, jobqueue.ErrFull) || errors.Is(err, jobqueue.ErrStopped) {
			return "", false, fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return "", false, err
	}

	metrics.RecordJobSubmitted()
	s.logger.Debug(ctx, "curve job queued",
		logger.String("job_id", job.ID),
		logger.Int("intervals", job.Diagram.Len()),
		logger.Int("gridPoints", job.Grid.Len()),
	)
	return job.ID, false, nil
}

// Result returns the stored result for id; it wraps repository.ErrNotFound
// for unknown or expired ids.
func (s *Service) Result(ctx context.Context, id string) (model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Result{}, ErrNotStarted
	}
	return s.store.Get(ctx, id)
}

// Compute resolves and discretizes a request synchronously. The result has
// no id and is not stored.
func (s *Service) Compute(ctx context.Context, req model.Request) (model.Result, error) { //nolint:gocritic // hugeParam: request is read-only
	job, err := s.resolve(req)
	if err != nil {
		return model.Result{}, err
	}
	job.SubmittedAt = time.Now().UTC()
	res, err := s.computer.Compute(ctx, job)
	if err != nil {
		metrics.RecordErrorByComponent("service", "compute_error")
		return model.Result{}, err
	}
	return res, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueCapacity":    s.queueSize,
		"dimensionWorkers": s.dimensionWorkers,
		"gridPoints":       s.gridPoints,
		"dimensions":       s.dimensions,
		"storeBackend":     s.storeBackend,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		results := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["results"] = results
		stats["dedupeKeys"] = s.deduper.Size()
		stats["processed"] = s.pool.Processed()
		stats["failed"] = s.pool.Failed()

		metrics.UpdateStoreRecords(results)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
