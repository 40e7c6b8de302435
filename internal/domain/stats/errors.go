package stats

import "errors"

// Sentinel kinds for aggregator errors.
var (
	ErrUnknownPlayer = errors.New("no stats record for player")
	ErrInvalidEvent  = errors.New("invalid game event")
)
