package persistence

import "errors"

// Sentinel kinds for persistence diagram errors.
var (
	ErrInvalidInterval  = errors.New("persistence: invalid interval")
	ErrInvalidDimension = errors.New("persistence: invalid homology dimension")
)
