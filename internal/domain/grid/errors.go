package grid

import "errors"

// Sentinel kinds for grid errors.
var (
	ErrInvalidGrid = errors.New("grid: invalid scale grid")
)
