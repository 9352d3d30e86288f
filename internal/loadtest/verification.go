package loadtest

import (
	"fmt"

	"github.com/okian/betti/internal/domain/persistence"
	"github.com/okian/betti/internal/domain/types"
)

// bruteForce counts, per grid value, the intervals with birth <= value < death.
func bruteForce(values []float64, ivs []persistence.Interval) []int {
	curve := make([]int, len(values))
	for i, v := range values {
		for _, iv := range ivs {
			if iv.Birth <= v && v < iv.Death {
				curve[i]++
			}
		}
	}
	return curve
}

// verifyCurves checks every requested dimension of a finished job against
// the brute-force count on the grid the service reported.
func verifyCurves(d persistence.Diagram, dims []int, res types.CurveResponse) error { //nolint:gocritic // hugeParam: response is read-only
	if res.Status != "done" {
		return fmt.Errorf("job %s is %s: %s", res.ID, res.Status, res.Error)
	}
	if res.Intervals != d.Len() {
		return fmt.Errorf("job %s reports %d intervals, sent %d", res.ID, res.Intervals, d.Len())
	}
	for _, dim := range dims {
		got, ok := res.Curves[dim]
		if !ok {
			return fmt.Errorf("job %s: dimension %d missing", res.ID, dim)
		}
		want := bruteForce(res.Grid, d[dim])
		if len(got) != len(want) {
			return fmt.Errorf("job %s: dimension %d has %d samples, grid has %d", res.ID, dim, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				return fmt.Errorf("job %s: dimension %d at scale %g: got %d, want %d", res.ID, dim, res.Grid[i], got[i], want[i])
			}
		}
	}
	return nil
}
