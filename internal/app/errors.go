package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidRequest = errors.New("invalid curve request")
	ErrBusy           = errors.New("service busy")
	ErrNotStarted     = errors.New("service not started")
)
