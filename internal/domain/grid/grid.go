// Package grid defines the scale grid Betti curves are sampled on.
package grid

import (
	"fmt"
	"math"
)

// minPoints is the smallest grid that still has a step size.
const minPoints = 2

// uniformTolerance bounds the deviation allowed between consecutive steps,
// relative to the step, before a grid is considered non-uniform. Grids
// written out by numpy's linspace also carry rounding noise of a few ulps
// of the values themselves; noiseUlps covers that.
const (
	uniformTolerance = 1e-9
	noiseUlps        = 4
)

// Grid is an immutable, strictly increasing, uniformly spaced sequence of
// filtration values.
type Grid struct {
	values []float64
	step   float64
}

// New builds a Grid from explicit values.
func New(values []float64) (*Grid, error) {
	if len(values) < minPoints {
		return nil, fmt.Errorf("%w: need at least %d points, got %d", ErrInvalidGrid, minPoints, len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: value at %d is not finite", ErrInvalidGrid, i)
		}
	}

	step := values[1] - values[0]
	if step <= 0 {
		return nil, fmt.Errorf("%w: values must be strictly increasing", ErrInvalidGrid)
	}
	for i := 2; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d <= 0 {
			return nil, fmt.Errorf("%w: values must be strictly increasing (index %d)", ErrInvalidGrid, i)
		}
		noise := noiseUlps * ulp(math.Max(math.Abs(values[i]), math.Abs(values[i-1])))
		if math.Abs(d-step) > uniformTolerance*step+noise {
			return nil, fmt.Errorf("%w: non-uniform spacing at index %d", ErrInvalidGrid, i)
		}
	}

	cp := make([]float64, len(values))
	copy(cp, values)
	return &Grid{values: cp, step: step}, nil
}

// Linspace returns n evenly spaced values over [start, stop], both ends
// included.
func Linspace(start, stop float64, n int) (*Grid, error) {
	if n < minPoints {
		return nil, fmt.Errorf("%w: need at least %d points, got %d", ErrInvalidGrid, minPoints, n)
	}
	if math.IsNaN(start) || math.IsNaN(stop) || math.IsInf(start, 0) || math.IsInf(stop, 0) {
		return nil, fmt.Errorf("%w: bounds must be finite", ErrInvalidGrid)
	}
	if stop <= start {
		return nil, fmt.Errorf("%w: stop (%g) must be greater than start (%g)", ErrInvalidGrid, stop, start)
	}

	step := (stop - start) / float64(n-1)
	values := make([]float64, n)
	for i := range values {
		values[i] = start + float64(i)*step
	}
	values[n-1] = stop
	return &Grid{values: values, step: step}, nil
}

// Len returns the number of grid points.
func (g *Grid) Len() int { return len(g.values) }

// Start returns the first grid value.
func (g *Grid) Start() float64 { return g.values[0] }

// Stop returns the last grid value.
func (g *Grid) Stop() float64 { return g.values[len(g.values)-1] }

// Step returns the spacing between consecutive points.
func (g *Grid) Step() float64 { return g.step }

// At returns the i-th grid value.
func (g *Grid) At(i int) float64 { return g.values[i] }

// Values returns a copy of the grid values.
func (g *Grid) Values() []float64 {
	cp := make([]float64, len(g.values))
	copy(cp, g.values)
	return cp
}

// Index maps a scale value to the smallest grid index i with
// grid[i] >= v, clamped to [0, Len()]. Values above the grid map to Len().
//
// The position is estimated as ceil((v - grid[0]) / step) and then
// nudged against the stored values so floating-point rounding never moves
// a value onto the wrong side of a grid point.
func (g *Grid) Index(v float64) int {
	n := len(g.values)
	switch {
	case math.IsInf(v, 1):
		return n
	case math.IsInf(v, -1):
		return 0
	}

	pos := math.Ceil((v - g.values[0]) / g.step)
	var idx int
	switch {
	case pos <= 0:
		idx = 0
	case pos >= float64(n):
		idx = n
	default:
		idx = int(pos)
	}

	for idx > 0 && g.values[idx-1] >= v {
		idx--
	}
	for idx < n && g.values[idx] < v {
		idx++
	}
	return idx
}

// ulp returns the distance from |v| to the next larger float64.
func ulp(v float64) float64 {
	v = math.Abs(v)
	return math.Nextafter(v, math.Inf(1)) - v
}
