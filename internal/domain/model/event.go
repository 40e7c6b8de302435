package model

// EventType names a classified game event.
type EventType string

// Event types emitted by the classifier.
const (
	EventShotMade EventType = "SHOT_ATTEMPT_MADE"
	EventRebound  EventType = "REBOUND"
)

// Point values for made shots.
const (
	TwoPoints   = 2
	ThreePoints = 3
)

// GameEvent is an immutable classified event.
type GameEvent struct {
	Type       EventType `json:"type"`
	FrameIndex int64     `json:"frame_index"`
	Timestamp  float64   `json:"ts"`
	PlayerID   string    `json:"player_id"`
	Points     int       `json:"points,omitempty"` // 2 or 3 for shots, 0 otherwise
}

// IsThree reports whether the event is a made three-pointer.
func (e GameEvent) IsThree() bool {
	return e.Type == EventShotMade && e.Points == ThreePoints
}
