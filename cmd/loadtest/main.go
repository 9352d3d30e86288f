// Command loadtest floods a running betti service with random diagrams and
// verifies every curve it returns.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/betti/internal/loadtest"
	"github.com/okian/betti/pkg/logger"
)

// Default configuration constants.
const (
	defaultDiagrams       = 2000
	defaultMaxIntervals   = 200
	defaultMaxDimension   = 2
	defaultScale          = 10.0
	defaultPoints         = 100
	defaultDuplicateRate  = 0.05
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultPollInterval   = 50 * time.Millisecond
	defaultProcessTimeout = 2 * time.Minute
	defaultTestTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL        = flag.String("url", "http://localhost:9080", "Base URL of the service")
		diagrams       = flag.Int("diagrams", defaultDiagrams, "Number of diagrams to generate and submit")
		maxIntervals   = flag.Int("max-intervals", defaultMaxIntervals, "Upper bound on intervals per dimension")
		maxDimension   = flag.Int("max-dim", defaultMaxDimension, "Highest homology dimension generated")
		scale          = flag.Float64("scale", defaultScale, "Filtration values fall in [0, scale)")
		points         = flag.Int("points", defaultPoints, "Grid size requested")
		duplicateRate  = flag.Float64("duplicates", defaultDuplicateRate, "Share of requests repeating an earlier one")
		workers        = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout        = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		pollInterval   = flag.Duration("poll", defaultPollInterval, "Delay between result polls")
		processTimeout = flag.Duration("process-timeout", defaultProcessTimeout, "How long to wait for all jobs")
		seed           = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Generator seed")
		outputFile     = flag.String("output", "", "Write generated cases as JSON lines to this file")
		verbose        = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)

	cfg := &loadtest.Config{
		BaseURL:        *baseURL,
		NumDiagrams:    *diagrams,
		MaxIntervals:   *maxIntervals,
		MaxDimension:   *maxDimension,
		Scale:          *scale,
		Points:         *points,
		DuplicateRate:  *duplicateRate,
		Workers:        max(1, *workers),
		Timeout:        *timeout,
		PollInterval:   *pollInterval,
		ProcessTimeout: *processTimeout,
		Seed:           *seed,
		OutputFile:     *outputFile,
	}

	logger.Get().Info(ctx, "load test seed", logger.Any("seed", cfg.Seed))
	_, err := loadtest.Run(ctx, cfg)
	cancel()
	stop()
	if err != nil {
		os.Stderr.WriteString("load test failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
