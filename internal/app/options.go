package service

import (
	"time"

	"github.com/okian/betti/internal/adapters/repository"
	"github.com/okian/betti/internal/config"
	"github.com/okian/betti/internal/domain/betti"
	"github.com/okian/betti/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDimensionWorkers bounds how many dimensions of one job run concurrently.
func WithDimensionWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dimensionWorkers = n
		}
	}
}

// WithGridPoints sets the resolution used when a request names none.
func WithGridPoints(n int) Option {
	return func(s *Service) {
		if n >= 2 {
			s.gridPoints = n
		}
	}
}

// WithDefaultDimensions sets the dimensions every curve set includes.
func WithDefaultDimensions(dims []int) Option {
	return func(s *Service) {
		s.dimensions = append([]int(nil), dims...)
	}
}

// WithMaxIntervals caps the interval count of a request.
func WithMaxIntervals(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxIntervals = n
		}
	}
}

// WithMaxGridPoints caps the grid size of a request.
func WithMaxGridPoints(n int) Option {
	return func(s *Service) {
		if n >= 2 {
			s.maxGridPoints = n
		}
	}
}

// WithResultTTL sets how long results and idempotency keys are retained.
// Zero keeps them forever.
func WithResultTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.resultTTL = ttl
		}
	}
}

// WithStoreBackend selects the result store opened by Start.
func WithStoreBackend(backend, path string) Option {
	return func(s *Service) {
		s.storeBackend = backend
		s.storePath = path
	}
}

// WithStore injects an already opened store; Start will not open another.
// The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithDiscretizer replaces the interval-stabbing discretizer.
func WithDiscretizer(d betti.Discretizer) Option {
	return func(s *Service) {
		if d != nil {
			s.discretizer = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// OptionsFromConfig maps loaded configuration onto service options.
func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDimensionWorkers(cfg.DimensionWorkers),
		WithGridPoints(cfg.GridPoints),
		WithDefaultDimensions(cfg.Dimensions),
		WithMaxIntervals(cfg.MaxIntervals),
		WithMaxGridPoints(cfg.MaxGridPoints),
		WithResultTTL(time.Duration(cfg.ResultTTLSeconds) * time.Second),
		WithStoreBackend(cfg.StoreBackend, cfg.StorePath),
	}
}
