package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrOutOfOrder = errors.New("frame index not after last processed frame")
	ErrClosed     = errors.New("session closed")
)
