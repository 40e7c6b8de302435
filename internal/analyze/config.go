// Package analyze runs a recorded detection stream through one session and
// reports the resulting box score.
package analyze

import (
	"time"

	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/internal/domain/types"
)

// Config holds configuration for one offline analysis.
type Config struct {
	SessionID     string            // Session id; generated when empty
	Calibration   model.Calibration // Court calibration
	FrameSkip     int64             // Analyze every Nth frame
	PlayerMin     float64           // Minimum player detection confidence
	BallMin       float64           // Minimum ball detection confidence
	Cooldown      int64             // Shot cooldown in frames
	ReboundWindow int64             // Rebound window in frames
	Threshold     float64           // OCR confidence threshold
	Workers       int               // Decode workers
	QueueSize     int               // Raw record buffer
	ArchivePath   string            // SQLite archive; empty disables it
	EventsOut     string            // Game log JSON file; "-" writes to the report
}

// Report is the outcome of one analysis.
type Report struct {
	Summary   types.SessionSummary         `json:"summary"`
	Stats     map[string]model.PlayerStats `json:"stats"`
	Events    []model.GameEvent            `json:"events"`
	Records   int64                        `json:"records"`
	Skipped   int64                        `json:"skipped"`
	Failed    int64                        `json:"failed"`
	StartTime time.Time                    `json:"start_time"`
	Duration  time.Duration                `json:"duration"`
}
