package repository

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNotFound     = errors.New("player not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrEmptyPlayer  = errors.New("empty player id")
)
