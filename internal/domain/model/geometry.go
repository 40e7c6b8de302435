// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Box is an axis-aligned rectangle in frame pixel coordinates.
// On the wire it is encoded as [x1, y1, x2, y2].
type Box struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Center returns the box center.
func (b Box) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// CenterX returns the horizontal center.
func (b Box) CenterX() float64 { return (b.X1 + b.X2) / 2 }

// CenterY returns the vertical center.
func (b Box) CenterY() float64 { return (b.Y1 + b.Y2) / 2 }

// Width returns x2-x1.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Height returns y2-y1.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// ContainsStrict reports whether (x, y) lies strictly inside the box.
// Points on an edge are outside.
func (b Box) ContainsStrict(x, y float64) bool {
	return x > b.X1 && x < b.X2 && y > b.Y1 && y < b.Y2
}

// Validate rejects boxes with non-finite coordinates or no area.
func (b Box) Validate() error {
	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate in %v", ErrInvalidBox, b)
		}
	}
	if b.Width() <= 0 || b.Height() <= 0 {
		return fmt.Errorf("%w: zero or negative area %v", ErrInvalidBox, b)
	}
	return nil
}

// String renders the box as (x1,y1,x2,y2).
func (b Box) String() string {
	return fmt.Sprintf("(%g,%g,%g,%g)", b.X1, b.Y1, b.X2, b.Y2)
}

// MarshalJSON encodes the box as a four element array.
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes a four element array.
func (b *Box) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBox, err)
	}
	if len(raw) != 4 {
		return fmt.Errorf("%w: want 4 coordinates, got %d", ErrInvalidBox, len(raw))
	}
	b.X1, b.Y1, b.X2, b.Y2 = raw[0], raw[1], raw[2], raw[3]
	return nil
}

// Calibration is the per-session court geometry. It is supplied once before
// processing and never mutated.
type Calibration struct {
	HoopBox         Box     `json:"hoop_box"`
	ThreePointLineY float64 `json:"three_point_line_y"`
}

// DefaultCalibration mirrors the calibration form defaults of the capture UI.
func DefaultCalibration() Calibration {
	return Calibration{
		HoopBox:         Box{X1: 400, Y1: 50, X2: 500, Y2: 100},
		ThreePointLineY: 200,
	}
}

// Validate rejects degenerate geometry before any frame is processed.
func (c Calibration) Validate() error {
	if err := c.HoopBox.Validate(); err != nil {
		return fmt.Errorf("%w: hoop_box: %w", ErrInvalidCalibration, err)
	}
	if math.IsNaN(c.ThreePointLineY) || math.IsInf(c.ThreePointLineY, 0) {
		return fmt.Errorf("%w: three_point_line_y must be finite", ErrInvalidCalibration)
	}
	return nil
}
