package service

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"github.com/okian/betti/internal/domain/grid"
	"github.com/okian/betti/internal/domain/model"
	"github.com/okian/betti/internal/domain/persistence"
)

// resolve validates a request and turns it into a job without id.
func (s *Service) resolve(req model.Request) (model.Job, error) { //nolint:gocritic // hugeParam: request is read-only
	d := req.Diagram
	if d == nil {
		d = persistence.Diagram{}
	}
	if err := d.Validate(); err != nil {
		return model.Job{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if n := d.Len(); n > s.maxIntervals {
		return model.Job{}, fmt.Errorf("%w: %d intervals exceed the limit of %d", ErrInvalidRequest, n, s.maxIntervals)
	}

	g, err := s.resolveGrid(req.Grid, d)
	if err != nil {
		return model.Job{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	dims, err := s.resolveDims(req.Dimensions, d)
	if err != nil {
		return model.Job{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	job := model.Job{
		Grid:       g,
		Diagram:    d,
		Dimensions: dims,
	}
	job.Key = jobKey(job)
	return job, nil
}

// resolveGrid builds the sampling grid. Explicit values win; otherwise a
// linspace from start (default 0) to stop (default: the diagram's largest
// finite value) with the configured number of points.
func (s *Service) resolveGrid(spec model.GridSpec, d persistence.Diagram) (*grid.Grid, error) {
	if len(spec.Values) > 0 {
		if len(spec.Values) > s.maxGridPoints {
			return nil, fmt.Errorf("%d grid points exceed the limit of %d", len(spec.Values), s.maxGridPoints)
		}
		return grid.New(spec.Values)
	}

	points := spec.Points
	if points == 0 {
		points = s.gridPoints
	}
	if points > s.maxGridPoints {
		return nil, fmt.Errorf("%d grid points exceed the limit of %d", points, s.maxGridPoints)
	}

	start := 0.0
	if spec.Start != nil {
		start = *spec.Start
	}

	var stop float64
	switch {
	case spec.Stop != nil:
		stop = *spec.Stop
	default:
		hi, ok := d.MaxFinite()
		if !ok {
			return nil, fmt.Errorf("%w: no finite value to derive the grid range from; give stop", grid.ErrInvalidGrid)
		}
		stop = hi
	}
	return grid.Linspace(start, stop, points)
}

// resolveDims returns the requested dimensions, or the configured defaults
// together with every dimension the diagram has.
func (s *Service) resolveDims(requested []int, d persistence.Diagram) ([]int, error) {
	set := make(map[int]struct{})
	if len(requested) > 0 {
		for _, dim := range requested {
			set[dim] = struct{}{}
		}
	} else {
		for _, dim := range s.dimensions {
			set[dim] = struct{}{}
		}
		for _, dim := range d.Dimensions() {
			set[dim] = struct{}{}
		}
	}

	dims := make([]int, 0, len(set))
	for dim := range set {
		if dim < 0 {
			return nil, fmt.Errorf("%w: %d", persistence.ErrInvalidDimension, dim)
		}
		dims = append(dims, dim)
	}
	sort.Ints(dims)
	return dims, nil
}

// jobKey identifies the work a job represents: diagram content, grid and
// dimensions.
func jobKey(j model.Job) string { //nolint:gocritic // hugeParam: read-only
	h := sha256.New()
	var buf [8]byte
	write := func(u uint64) {
		binary.LittleEndian.PutUint64(buf[:], u)
		_, _ = h.Write(buf[:])
	}

	_, _ = h.Write([]byte(j.Diagram.Fingerprint()))
	write(uint64(j.Grid.Len()))
	for i := 0; i < j.Grid.Len(); i++ {
		v := j.Grid.At(i)
		if v == 0 {
			v = 0 // fold -0
		}
		write(math.Float64bits(v))
	}
	write(uint64(len(j.Dimensions)))
	for _, dim := range j.Dimensions {
		write(uint64(dim))
	}
	return hex.EncodeToString(h.Sum(nil))
}
