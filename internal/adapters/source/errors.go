package source

import "errors"

// Sentinel kinds for source errors.
var (
	ErrSkipped       = errors.New("frame not sampled")
	ErrInvalidRecord = errors.New("invalid detection record")
)
