// Package source reads detection records produced by the upstream detector and
// tracker, one JSON object per line, and turns them into frames.
package source

import (
	"github.com/okian/hoopvision/internal/domain/model"
)

// Detection is a raw detector output. A missing confidence counts as certain.
type Detection struct {
	BBox       model.Box `json:"bbox"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// TrackRecord is a tracked player detection.
type TrackRecord struct {
	TrackID    int64                `json:"track_id"`
	BBox       model.Box            `json:"bbox"`
	Confidence *float64             `json:"confidence,omitempty"`
	Jersey     *model.JerseyReading `json:"jersey,omitempty"`
}

// Record is one line of detector output.
//
// Balls lists every ball candidate in detector order; Ball is accepted for
// producers that already picked one.
type Record struct {
	Frame     int64         `json:"frame"`
	Timestamp float64       `json:"ts"`
	Tracks    []TrackRecord `json:"tracks"`
	Balls     []Detection   `json:"balls,omitempty"`
	Ball      *model.Box    `json:"ball,omitempty"`
}

func confident(c *float64, min float64) bool {
	return c == nil || *c > min
}
