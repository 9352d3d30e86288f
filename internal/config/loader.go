package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "BETTI_"
	envFileVar = "BETTI_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if BETTI_CONFIG is set
//  3. env (prefix BETTI_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// BETTI_GRID_POINTS -> grid_points; underscores are kept to match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.DimensionWorkers < 1:
		return fmt.Errorf("%w: dimension_workers must be positive, got %d", ErrInvalidConfig, c.DimensionWorkers)
	case c.GridPoints < 2:
		return fmt.Errorf("%w: grid_points must be at least 2, got %d", ErrInvalidConfig, c.GridPoints)
	case c.MaxGridPoints < c.GridPoints:
		return fmt.Errorf("%w: max_grid_points (%d) below grid_points (%d)", ErrInvalidConfig, c.MaxGridPoints, c.GridPoints)
	case c.MaxIntervals < 1:
		return fmt.Errorf("%w: max_intervals must be positive, got %d", ErrInvalidConfig, c.MaxIntervals)
	case c.ResultTTLSeconds < 0:
		return fmt.Errorf("%w: result_ttl_seconds must not be negative", ErrInvalidConfig)
	case c.RateLimitRPS < 0 || c.RateLimitBurst < 0:
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	}
	for _, d := range c.Dimensions {
		if d < 0 {
			return fmt.Errorf("%w: dimensions must not be negative, got %d", ErrInvalidConfig, d)
		}
	}
	switch c.StoreBackend {
	case StoreMemory:
	case StoreBadger:
		if c.StorePath == "" {
			return fmt.Errorf("%w: store_path is required for the badger backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}
