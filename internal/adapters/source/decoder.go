package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/hoopvision/internal/domain/model"
)

// Decoder converts records to frames, applying sampling and confidence filters.
type Decoder struct {
	frameSkip int64
	playerMin float64
	ballMin   float64
}

// NewDecoder returns a decoder with the default filters.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		frameSkip: DefaultFrameSkip,
		playerMin: DefaultPlayerMinConfidence,
		ballMin:   DefaultBallMinConfidence,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FrameSkip returns the sampling stride.
func (d *Decoder) FrameSkip() int64 { return d.frameSkip }

// Decode parses one JSON record. Frames outside the sampling stride return
// ErrSkipped.
func (d *Decoder) Decode(_ context.Context, payload []byte) (model.Frame, error) {
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return model.Frame{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return d.Convert(rec)
}

// Convert filters rec into a frame.
func (d *Decoder) Convert(rec Record) (model.Frame, error) {
	if rec.Frame < 0 {
		return model.Frame{}, fmt.Errorf("%w: negative frame %d", ErrInvalidRecord, rec.Frame)
	}
	if rec.Frame%d.frameSkip != 0 {
		return model.Frame{}, ErrSkipped
	}

	frame := model.Frame{
		Index:     rec.Frame,
		Timestamp: rec.Timestamp,
		Tracks:    make([]model.Track, 0, len(rec.Tracks)),
	}
	for _, tr := range rec.Tracks {
		if !confident(tr.Confidence, d.playerMin) {
			continue
		}
		frame.Tracks = append(frame.Tracks, model.Track{
			TrackID: tr.TrackID,
			BBox:    tr.BBox,
			Reading: tr.Jersey,
		})
	}

	// First confident candidate wins.
	for _, b := range rec.Balls {
		if confident(b.Confidence, d.ballMin) {
			ball := b.BBox
			frame.Ball = &ball
			break
		}
	}
	if frame.Ball == nil && rec.Ball != nil {
		ball := *rec.Ball
		frame.Ball = &ball
	}
	return frame, nil
}
