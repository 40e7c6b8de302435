package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrInvalidBox         = errors.New("invalid bounding box")
	ErrInvalidCalibration = errors.New("invalid court calibration")
	ErrStatsInvariant     = errors.New("player stats invariant violated")
)
