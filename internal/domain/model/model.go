// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/betti/internal/domain/grid"
	"github.com/okian/betti/internal/domain/persistence"
)

// Status is the lifecycle state of a curve job.
type Status string

// Job states.
const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusFailed }

// GridSpec describes the sampling grid a client asks for. Values wins over
// Start/Stop/Points; an empty spec means "derive from the diagram".
type GridSpec struct {
	Values []float64
	Start  *float64
	Stop   *float64
	Points int
}

// Empty reports whether no grid setting was given, leaving it all to defaults.
func (s GridSpec) Empty() bool {
	return len(s.Values) == 0 && s.Start == nil && s.Stop == nil && s.Points == 0
}

// Request is a client's ask for Betti curves of one diagram.
type Request struct {
	Diagram    persistence.Diagram
	Grid       GridSpec
	Dimensions []int
}

// Job is a resolved request ready for a worker.
type Job struct {
	ID          string
	Key         string // idempotency key
	Grid        *grid.Grid
	Diagram     persistence.Diagram
	Dimensions  []int
	SubmittedAt time.Time
}

// Result is the stored outcome of a job.
type Result struct {
	ID          string        `json:"id"`
	Status      Status        `json:"status"`
	Grid        []float64     `json:"grid,omitempty"`
	Curves      map[int][]int `json:"curves,omitempty"`
	Intervals   int           `json:"intervals"`
	Error       string        `json:"error,omitempty"`
	SubmittedAt time.Time     `json:"submitted_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
}
