// Package config defines service configuration structures and loading hooks.
//
// Values are layered from defaults, an optional YAML file and HOOP_ prefixed
// environment variables. Nested keys use a double underscore in env names,
// e.g. HOOP_HOOP_BOX__X1.
package config

import (
	"fmt"
	"math"
	"runtime"

	"github.com/okian/hoopvision/internal/domain/model"
)

// BoxConfig is the hoop box in image pixels.
type BoxConfig struct {
	X1 float64 `koanf:"x1"`
	Y1 float64 `koanf:"y1"`
	X2 float64 `koanf:"x2"`
	Y2 float64 `koanf:"y2"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the raw record queue of the offline pipeline.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of decode workers; < 1 means one per CPU.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the frame retry cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ArchivePath is the SQLite file for closed sessions. Empty disables it.
	ArchivePath string `koanf:"archive_path"`

	// MaxLeaderboardLimit caps GET /sessions/{id}/leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	HoopBox         BoxConfig `koanf:"hoop_box"`
	ThreePointLineY float64   `koanf:"three_point_line_y"`

	CooldownFrames         int64   `koanf:"cooldown_frames"`
	ReboundWindowFrames    int64   `koanf:"rebound_window_frames"`
	OCRConfidenceThreshold float64 `koanf:"ocr_confidence_threshold"`

	// FrameSkip keeps every n-th source frame.
	FrameSkip int64 `koanf:"frame_skip"`

	PlayerMinConfidence float64 `koanf:"player_min_confidence"`
	BallMinConfidence   float64 `koanf:"ball_min_confidence"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		QueueSize:              4096,
		WorkerCount:            runtime.NumCPU(),
		DedupeSize:             50_000,
		MaxLeaderboardLimit:    100,
		HoopBox:                BoxConfig{X1: 400, Y1: 50, X2: 500, Y2: 100},
		ThreePointLineY:        200,
		CooldownFrames:         10,
		ReboundWindowFrames:    5,
		OCRConfidenceThreshold: 0.4,
		FrameSkip:              5,
		PlayerMinConfidence:    0.3,
		BallMinConfidence:      0.4,
	}
}

// Calibration returns the court geometry described by the config.
func (c *Config) Calibration() model.Calibration {
	return model.Calibration{
		HoopBox:         model.Box{X1: c.HoopBox.X1, Y1: c.HoopBox.Y1, X2: c.HoopBox.X2, Y2: c.HoopBox.Y2},
		ThreePointLineY: c.ThreePointLineY,
	}
}

// Validate checks every field that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if err := c.Calibration().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.CooldownFrames < 0 || c.ReboundWindowFrames < 0 {
		return fmt.Errorf("%w: frame windows must not be negative", ErrInvalidConfig)
	}
	for name, v := range map[string]float64{
		"ocr_confidence_threshold": c.OCRConfidenceThreshold,
		"player_min_confidence":    c.PlayerMinConfidence,
		"ball_min_confidence":      c.BallMinConfidence,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.FrameSkip < 1 {
		return fmt.Errorf("%w: frame_skip must be at least 1", ErrInvalidConfig)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.MaxLeaderboardLimit < 1 {
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
