// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and BETTI_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"runtime"
)

// Store backends understood by the service.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of curve workers.
	WorkerCount int `koanf:"worker_count"`

	// DimensionWorkers bounds per-job parallelism across homology dimensions.
	DimensionWorkers int `koanf:"dimension_workers"`

	// GridPoints is the default curve resolution when a request names none.
	GridPoints int `koanf:"grid_points"`

	// Dimensions are always included in a curve set, even when absent from the diagram.
	Dimensions []int `koanf:"dimensions"`

	// MaxIntervals caps the total interval count of a single request.
	MaxIntervals int `koanf:"max_intervals"`

	// MaxGridPoints caps the grid size of a single request.
	MaxGridPoints int `koanf:"max_grid_points"`

	// ResultTTLSeconds is how long results and idempotency keys are retained.
	ResultTTLSeconds int `koanf:"result_ttl_seconds"`

	// StoreBackend selects the result store: memory or badger.
	StoreBackend string `koanf:"store_backend"`

	// StorePath is the badger data directory.
	StorePath string `koanf:"store_path"`

	// RateLimitRPS and RateLimitBurst shape the token bucket in front of POST routes.
	// A zero RPS disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		QueueSize:        10_000,
		WorkerCount:      runtime.NumCPU(),
		DimensionWorkers: 3,
		GridPoints:       100,
		Dimensions:       []int{0, 1, 2},
		MaxIntervals:     1_000_000,
		MaxGridPoints:    100_000,
		ResultTTLSeconds: 3600,
		StoreBackend:     StoreMemory,
		StorePath:        "",
		RateLimitRPS:     200,
		RateLimitBurst:   400,
	}
}
