// Package persistence models persistence diagrams produced by an external
// homology backend: per-dimension sets of (birth, death) intervals.
package persistence

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
)

// Interval is the scale range [Birth, Death) over which one topological
// feature exists. Death is +Inf for features that never die.
type Interval struct {
	Birth float64
	Death float64
}

// Unbounded reports whether the feature persists forever.
func (iv Interval) Unbounded() bool { return math.IsInf(iv.Death, 1) }

// Validate rejects NaN endpoints, infinite births and birth > death.
func (iv Interval) Validate() error {
	switch {
	case math.IsNaN(iv.Birth) || math.IsNaN(iv.Death):
		return fmt.Errorf("%w: NaN endpoint", ErrInvalidInterval)
	case math.IsInf(iv.Birth, 1):
		return fmt.Errorf("%w: birth is +Inf", ErrInvalidInterval)
	case iv.Birth > iv.Death:
		return fmt.Errorf("%w: birth %g > death %g", ErrInvalidInterval, iv.Birth, iv.Death)
	}
	return nil
}

// Diagram maps a homology dimension (0 components, 1 loops, 2 voids, ...)
// to its intervals. Interval order carries no meaning.
type Diagram map[int][]Interval

// Validate checks every dimension and interval.
func (d Diagram) Validate() error {
	for _, dim := range d.Dimensions() {
		if dim < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
		}
		for i, iv := range d[dim] {
			if err := iv.Validate(); err != nil {
				return fmt.Errorf("dimension %d interval %d: %w", dim, i, err)
			}
		}
	}
	return nil
}

// Dimensions returns the dimensions present in the diagram, ascending.
func (d Diagram) Dimensions() []int {
	dims := make([]int, 0, len(d))
	for dim := range d {
		dims = append(dims, dim)
	}
	sort.Ints(dims)
	return dims
}

// Len returns the total number of intervals across all dimensions.
func (d Diagram) Len() int {
	n := 0
	for _, ivs := range d {
		n += len(ivs)
	}
	return n
}

// MaxFinite returns the largest finite birth or death value. ok is false
// when the diagram holds no finite value at all.
func (d Diagram) MaxFinite() (hi float64, ok bool) {
	hi = math.Inf(-1)
	for _, ivs := range d {
		for _, iv := range ivs {
			for _, v := range [2]float64{iv.Birth, iv.Death} {
				if math.IsInf(v, 0) || math.IsNaN(v) {
					continue
				}
				if v > hi {
					hi = v
					ok = true
				}
			}
		}
	}
	if !ok {
		return 0, false
	}
	return hi, true
}

// Fingerprint returns a stable hex digest of the diagram content,
// independent of map iteration and interval order. Dimensions without
// intervals do not contribute.
func (d Diagram) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	write := func(u uint64) {
		binary.LittleEndian.PutUint64(buf[:], u)
		_, _ = h.Write(buf[:])
	}

	for _, dim := range d.Dimensions() {
		if len(d[dim]) == 0 {
			continue
		}
		ivs := d.Sorted(dim)
		write(uint64(dim))
		write(uint64(len(ivs)))
		for _, iv := range ivs {
			write(floatBits(iv.Birth))
			write(floatBits(iv.Death))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Sorted returns a copy of dim's intervals ordered by birth, then death.
func (d Diagram) Sorted(dim int) []Interval {
	ivs := make([]Interval, len(d[dim]))
	copy(ivs, d[dim])
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].Birth != ivs[j].Birth {
			return ivs[i].Birth < ivs[j].Birth
		}
		return ivs[i].Death < ivs[j].Death
	})
	return ivs
}

// floatBits returns the bit pattern of v with -0 folded into +0.
func floatBits(v float64) uint64 {
	if v == 0 {
		v = 0
	}
	return math.Float64bits(v)
}
