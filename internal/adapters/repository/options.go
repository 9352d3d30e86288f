package repository

import (
	"time"

	"github.com/okian/betti/pkg/logger"
)

// settings is shared by every Store implementation.
type settings struct {
	ttl                   time.Duration
	metricsUpdateInterval time.Duration
	gcInterval            time.Duration
	inMemory              bool
	log                   logger.Logger
}

func defaultSettings() settings {
	return settings{
		ttl:                   time.Hour,
		metricsUpdateInterval: 5 * time.Second,
		gcInterval:            5 * time.Minute,
		log:                   logger.Nop(),
	}
}

// Option applies a configuration option to a Store.
type Option func(*settings)

// WithTTL sets how long results are retained. Zero or negative keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl < 0 {
			ttl = 0
		}
		s.ttl = ttl
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *settings) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithGCInterval sets how often badger's value log is garbage collected.
// Zero disables collection.
func WithGCInterval(interval time.Duration) Option {
	return func(s *settings) {
		s.gcInterval = interval
	}
}

// WithInMemory keeps badger data in RAM only. Intended for tests.
func WithInMemory(inMemory bool) Option {
	return func(s *settings) {
		s.inMemory = inMemory
	}
}

// WithLogger sets the logger for store diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
