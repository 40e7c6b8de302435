package classifier

import "errors"

// Sentinel kinds for classifier configuration errors.
var (
	ErrInvalidWindow = errors.New("invalid frame window")
)
