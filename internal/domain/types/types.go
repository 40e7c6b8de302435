// Package types contains common types used across the application
package types

import "github.com/okian/hoopvision/internal/domain/model"

// Entry represents a leaderboard row for one player in a session
type Entry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Points   int    `json:"points"`
	Makes    int    `json:"makes"`
	Attempts int    `json:"attempts"`
	Rebounds int    `json:"rebounds"`
}

// SessionSummary describes a live or archived session
type SessionSummary struct {
	SessionID       string `json:"session_id"`
	FramesProcessed int64  `json:"frames_processed"`
	LastFrame       int64  `json:"last_frame"`
	Events          int    `json:"events"`
	Players         int    `json:"players"`
}

// Frame submission outcomes.
const (
	StatusProcessed = "processed"
	StatusDuplicate = "duplicate"
)

// FrameResult is the outcome of one frame submission
type FrameResult struct {
	Status string            `json:"status"`
	Events []model.GameEvent `json:"events,omitempty"`
}
