package loadtest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/betti/internal/client"
	"github.com/okian/betti/internal/domain/persistence"
	"github.com/okian/betti/pkg/logger"
)

const (
	unboundedShare = 0.1
	valueDecimals  = 1000
)

// generateCases builds cfg.NumDiagrams requests, each on the grid
// linspace(0, cfg.Scale, cfg.Points).
func generateCases(ctx context.Context, cfg *Config, stats *Stats) ([]Case, error) {
	logger.Get().Info(ctx, "generating diagrams",
		logger.Int("diagrams", cfg.NumDiagrams),
		logger.Int("maxIntervals", cfg.MaxIntervals),
		logger.Int("maxDimension", cfg.MaxDimension),
	)

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible test data
	start, stop := 0.0, cfg.Scale
	dims := make([]int, cfg.MaxDimension+1)
	for i := range dims {
		dims[i] = i
	}

	cases := make([]Case, 0, cfg.NumDiagrams)
	for i := 0; i < cfg.NumDiagrams; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}

		if len(cases) > 0 && rng.Float64() < cfg.DuplicateRate {
			c := cases[rng.IntN(len(cases))]
			c.RequestID = uuid.NewString()
			c.Repeat = true
			cases = append(cases, c)
			continue
		}

		d := randomDiagram(rng, cfg)
		req, err := client.NewRequest(d)
		if err != nil {
			return nil, fmt.Errorf("encode diagram %d: %w", i, err)
		}
		req.Start, req.Stop, req.Points, req.Dimensions = &start, &stop, cfg.Points, dims
		cases = append(cases, Case{RequestID: uuid.NewString(), Diagram: d, Request: req})
	}

	stats.Generated = len(cases)
	return cases, nil
}

// randomDiagram draws intervals on a coarse lattice so endpoints often hit
// grid values exactly.
func randomDiagram(rng *rand.Rand, cfg *Config) persistence.Diagram {
	d := make(persistence.Diagram, cfg.MaxDimension+1)
	for dim := 0; dim <= cfg.MaxDimension; dim++ {
		n := rng.IntN(cfg.MaxIntervals + 1)
		ivs := make([]persistence.Interval, n)
		for j := range ivs {
			birth := roundValue(rng.Float64() * cfg.Scale)
			death := math.Inf(1)
			if rng.Float64() >= unboundedShare {
				death = roundValue(birth + rng.ExpFloat64()*cfg.Scale/4)
			}
			ivs[j] = persistence.Interval{Birth: birth, Death: death}
		}
		d[dim] = ivs
	}
	return d
}

func roundValue(v float64) float64 {
	return math.Round(v*valueDecimals) / valueDecimals
}
