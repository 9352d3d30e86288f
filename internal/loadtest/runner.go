package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/betti/internal/client"
	"github.com/okian/betti/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

const percentageMultiplier = 100

// ErrMismatch reports that at least one returned curve disagreed with the
// brute-force count.
var ErrMismatch = errors.New("loadtest: curve mismatch")

// Run executes the complete load test.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadtest")

	log.Info(ctx, "starting betti load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("diagrams", cfg.NumDiagrams),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	c := client.New(cfg.BaseURL, client.WithTimeout(cfg.Timeout))

	if err := c.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	cases, err := generateCases(ctx, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("diagram generation failed: %w", err)
	}

	submitCases(ctx, cfg, c, cases, stats)

	verr := awaitAndVerify(ctx, cfg, c, cases, stats)

	if cfg.OutputFile != "" {
		if err := saveCases(cfg.OutputFile, cases); err != nil {
			log.Warn(ctx, "failed to save cases", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verr != nil {
		return stats, verr
	}
	log.Info(ctx, "load test completed successfully")
	return stats, nil
}

// submitCases posts every case through a pool of cfg.Workers submitters.
func submitCases(ctx context.Context, cfg *Config, c *client.Client, cases []Case, stats *Stats) {
	var submitted, accepted, duplicate, rejected, failed int64

	work := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				atomic.AddInt64(&submitted, 1)
				ack, err := c.Submit(ctx, cases[i].Request)
				switch {
				case errors.Is(err, client.ErrBusy):
					cases[i].Outcome = OutcomeRejected
					atomic.AddInt64(&rejected, 1)
				case err != nil:
					cases[i].Outcome = OutcomeFailed
					atomic.AddInt64(&failed, 1)
					logger.Get().Debug(ctx, "submit failed", logger.String("request_id", cases[i].RequestID), logger.Error(err))
				case ack.Duplicate:
					cases[i].JobID, cases[i].Duplicate, cases[i].Outcome = ack.ID, true, OutcomeDuplicate
					atomic.AddInt64(&duplicate, 1)
				default:
					cases[i].JobID, cases[i].Outcome = ack.ID, OutcomeAccepted
					atomic.AddInt64(&accepted, 1)
				}
			}
		}()
	}

feed:
	for i := range cases {
		select {
		case <-ctx.Done():
			break feed
		case work <- i:
		}
	}
	close(work)
	wg.Wait()

	stats.Submitted = int(submitted)
	stats.Accepted = int(accepted)
	stats.Duplicate = int(duplicate)
	stats.Rejected = int(rejected)
	stats.Failed = int(failed)

	logger.Get().Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
	)
}

// awaitAndVerify polls every job that got an id and checks its curves.
func awaitAndVerify(ctx context.Context, cfg *Config, c *client.Client, cases []Case, stats *Stats) error {
	waitCtx, cancel := context.WithTimeout(ctx, cfg.ProcessTimeout)
	defer cancel()

	var completed, jobErrors, verified, mismatched int64
	var (
		mismatchOnce  sync.Once
		firstMismatch error
	)

	work := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				res, err := c.Wait(waitCtx, cases[i].JobID, cfg.PollInterval)
				if err != nil {
					atomic.AddInt64(&jobErrors, 1)
					continue
				}
				atomic.AddInt64(&completed, 1)
				if err := verifyCurves(cases[i].Diagram, cases[i].Request.Dimensions, res); err != nil {
					atomic.AddInt64(&mismatched, 1)
					mismatchOnce.Do(func() { firstMismatch = err })
					continue
				}
				atomic.AddInt64(&verified, 1)
			}
		}()
	}

	for i := range cases {
		if cases[i].JobID == "" {
			continue
		}
		work <- i
	}
	close(work)
	wg.Wait()

	stats.Completed = int(completed)
	stats.JobErrors = int(jobErrors)
	stats.Verified = int(verified)
	stats.Mismatched = int(mismatched)

	if mismatched > 0 {
		return fmt.Errorf("%w: %d jobs, first: %w", ErrMismatch, mismatched, firstMismatch)
	}
	if jobErrors > 0 {
		return fmt.Errorf("%d jobs did not finish in %s", jobErrors, cfg.ProcessTimeout)
	}
	return nil
}

// saveCases writes one JSON object per case.
func saveCases(filename string, cases []Case) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	enc := json.NewEncoder(file)
	for i := range cases {
		if err := enc.Encode(&cases[i]); err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to write case %d: %w", i, err)
		}
	}
	return file.Close()
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Accepted+stats.Duplicate) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("completed", stats.Completed),
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", perSecond),
	)
}
