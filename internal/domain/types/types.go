// Package types contains the wire shapes shared by the HTTP API and its clients.
package types

import "encoding/json"

// CurveRequest is the body of POST /curves and POST /curves/compute.
// Diagram uses the codec's JSON layout: {"0": [[birth, death], ...], ...}.
type CurveRequest struct {
	Diagram    json.RawMessage `json:"diagram" validate:"required"`
	Grid       []float64       `json:"grid,omitempty" validate:"omitempty,min=2"`
	Start      *float64        `json:"start,omitempty"`
	Stop       *float64        `json:"stop,omitempty"`
	Points     int             `json:"points,omitempty" validate:"omitempty,min=2"`
	Dimensions []int           `json:"dimensions,omitempty" validate:"omitempty,dive,min=0"`
}

// SubmitResponse acknowledges an asynchronous job.
type SubmitResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// CurveResponse carries a job's curves, one per homology dimension, sampled
// on Grid.
type CurveResponse struct {
	ID        string        `json:"id,omitempty"`
	Status    string        `json:"status"`
	Grid      []float64     `json:"grid,omitempty"`
	Curves    map[int][]int `json:"curves,omitempty"`
	Intervals int           `json:"intervals"`
	Error     string        `json:"error,omitempty"`
}
