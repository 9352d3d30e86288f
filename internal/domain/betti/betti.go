package betti

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/betti/internal/domain/grid"
	"github.com/okian/betti/internal/domain/persistence"
	"golang.org/x/sync/errgroup"
)

// Curves maps a homology dimension to its Betti curve.
type Curves map[int][]int

// Dimensions returns the dimensions present, ascending.
func (c Curves) Dimensions() []int {
	dims := make([]int, 0, len(c))
	for dim := range c {
		dims = append(dims, dim)
	}
	sort.Ints(dims)
	return dims
}

// Max returns the largest count found in any curve.
func (c Curves) Max() int {
	peak := 0
	for _, curve := range c {
		for _, v := range curve {
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}

// Discretizer computes Betti curves for a diagram on a grid.
type Discretizer interface {
	// Curves returns one curve per requested dimension. With no dims the
	// diagram's own dimensions are used; requested dimensions absent from
	// the diagram get all-zero curves.
	Curves(ctx context.Context, g *grid.Grid, d persistence.Diagram, dims ...int) (Curves, error)
}

// Option applies a configuration option to Stabbing.
type Option func(*Stabbing)

// WithParallelism sets how many dimensions are computed concurrently.
func WithParallelism(n int) Option {
	return func(s *Stabbing) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// Stabbing is the interval-stabbing Discretizer.
type Stabbing struct {
	parallelism int
}

var _ Discretizer = (*Stabbing)(nil)

// NewStabbing creates a Stabbing discretizer. It is sequential unless
// WithParallelism is given.
func NewStabbing(opts ...Option) *Stabbing {
	s := &Stabbing{parallelism: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Curves implements Discretizer.
func (s *Stabbing) Curves(ctx context.Context, g *grid.Grid, d persistence.Diagram, dims ...int) (Curves, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", grid.ErrInvalidGrid)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	dims, err := normalizeDims(d, dims)
	if err != nil {
		return nil, err
	}

	curves := make([][]int, len(dims))
	if s.parallelism <= 1 || len(dims) < 2 {
		for i, dim := range dims {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("betti curves: %w", err)
			}
			curves[i] = Curve(g, d[dim])
		}
	} else {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(s.parallelism)
		for i, dim := range dims {
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return fmt.Errorf("betti curves: %w", err)
				}
				curves[i] = Curve(g, d[dim])
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	out := make(Curves, len(dims))
	for i, dim := range dims {
		out[dim] = curves[i]
	}
	return out, nil
}

// Curve discretizes one dimension's intervals onto g. The intervals must
// already be valid.
func Curve(g *grid.Grid, intervals []persistence.Interval) []int {
	n := g.Len()
	diff := make([]int, n+1)
	for _, iv := range intervals {
		lo, hi := g.Index(iv.Birth), g.Index(iv.Death)
		if lo >= hi {
			continue
		}
		diff[lo]++
		diff[hi]--
	}

	curve := make([]int, n)
	alive := 0
	for i := range curve {
		alive += diff[i]
		curve[i] = alive
	}
	return curve
}

// normalizeDims returns the sorted, de-duplicated dimension list to
// compute.
func normalizeDims(d persistence.Diagram, dims []int) ([]int, error) {
	if len(dims) == 0 {
		return d.Dimensions(), nil
	}
	seen := make(map[int]struct{}, len(dims))
	out := make([]int, 0, len(dims))
	for _, dim := range dims {
		if dim < 0 {
			return nil, fmt.Errorf("%w: %d", persistence.ErrInvalidDimension, dim)
		}
		if _, ok := seen[dim]; ok {
			continue
		}
		seen[dim] = struct{}{}
		out = append(out, dim)
	}
	sort.Ints(out)
	return out, nil
}
