package model

// JerseyReading is a recognized jersey number with the recognizer's confidence.
type JerseyReading struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Track is a tracked player as maintained by the upstream tracker.
type Track struct {
	TrackID int64 `json:"track_id"`
	BBox    Box   `json:"bbox"`
	// PlayerID is set only once the identity registry has bound the track.
	PlayerID string `json:"player_id,omitempty"`
	// Reading carries the OCR result for this track's crop, if one was produced.
	Reading *JerseyReading `json:"jersey,omitempty"`
}

// Resolved reports whether the track is bound to a player identity.
func (t Track) Resolved() bool { return t.PlayerID != "" }

// Frame is one sampled frame after detection and tracking.
type Frame struct {
	Index     int64   `json:"frame"`
	Timestamp float64 `json:"ts"`
	Tracks    []Track `json:"tracks"`
	// Ball is nil when no ball was detected in this frame.
	Ball *Box `json:"ball,omitempty"`
}

// HasBall reports whether a ball observation exists for the frame.
func (f Frame) HasBall() bool { return f.Ball != nil }

// PlayerIdentity is a durable jersey-number identity and every track ever bound to it.
type PlayerIdentity struct {
	PlayerID string  `json:"player_id"`
	TrackIDs []int64 `json:"track_ids"`
}
