package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound  = errors.New("result not found")
	ErrInvalidID = errors.New("invalid result id")
)
