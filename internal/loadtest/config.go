// Package loadtest drives a running betti service with random diagrams and
// checks every curve it returns against the definition.
package loadtest

import (
	"time"

	"github.com/okian/betti/internal/domain/persistence"
	"github.com/okian/betti/internal/domain/types"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL        string        // Base URL of the service
	NumDiagrams    int           // Number of diagrams to generate
	MaxIntervals   int           // Upper bound on intervals per dimension
	MaxDimension   int           // Highest homology dimension generated
	Scale          float64       // Filtration values fall in [0, Scale)
	Points         int           // Grid size requested
	DuplicateRate  float64       // Share of requests that repeat an earlier one
	Workers        int           // Number of concurrent submitters
	Timeout        time.Duration // HTTP request timeout
	PollInterval   time.Duration // Delay between result polls
	ProcessTimeout time.Duration // How long to wait for all jobs
	Seed           uint64        // Generator seed; runs with the same seed send the same diagrams
	OutputFile     string        // Optional JSON lines dump of generated cases
}

// Case is one generated request and what became of it.
type Case struct {
	RequestID string              `json:"request_id"`
	Diagram   persistence.Diagram `json:"-"`
	Request   types.CurveRequest  `json:"request"`
	Repeat    bool                `json:"repeat,omitempty"`
	JobID     string              `json:"job_id,omitempty"`
	Duplicate bool                `json:"duplicate,omitempty"`
	Outcome   string              `json:"outcome,omitempty"`
}

// Outcomes of a submission.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Stats holds test statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Accepted   int
	Duplicate  int
	Rejected   int
	Failed     int
	Completed  int
	JobErrors  int
	Verified   int
	Mismatched int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
