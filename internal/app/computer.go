package service

import (
	"context"
	"strconv"
	"time"

	"github.com/okian/betti/internal/domain/betti"
	"github.com/okian/betti/internal/domain/model"
	"github.com/okian/betti/pkg/metrics"
)

// curveComputer adapts a betti.Discretizer to worker.Computer.
type curveComputer struct {
	discretizer betti.Discretizer
}

func (c *curveComputer) Compute(ctx context.Context, job model.Job) (model.Result, error) { //nolint:gocritic // hugeParam: matches worker.Computer
	start := time.Now()
	curves, err := c.discretizer.Curves(ctx, job.Grid, job.Diagram, job.Dimensions...)
	metrics.RecordComputeLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		return model.Result{}, err
	}

	metrics.RecordGridPoints(job.Grid.Len())
	for _, dim := range curves.Dimensions() {
		metrics.RecordIntervalsProcessed(strconv.Itoa(dim), len(job.Diagram[dim]))
	}

	return model.Result{
		ID:          job.ID,
		Status:      model.StatusDone,
		Grid:        job.Grid.Values(),
		Curves:      curves,
		Intervals:   job.Diagram.Len(),
		SubmittedAt: job.SubmittedAt,
		CompletedAt: time.Now().UTC(),
	}, nil
}
