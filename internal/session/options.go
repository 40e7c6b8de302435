package session

import (
	"github.com/okian/hoopvision/internal/domain/identity"
	"github.com/okian/hoopvision/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*settings)

type settings struct {
	cooldown      int64
	reboundWindow int64
	threshold     float64
	recognizer    identity.Recognizer
	logger        logger.Logger
}

// WithCooldown sets the shot cooldown in frames.
func WithCooldown(frames int64) Option {
	return func(s *settings) { s.cooldown = frames }
}

// WithReboundWindow sets the rebound window in frames.
func WithReboundWindow(frames int64) Option {
	return func(s *settings) { s.reboundWindow = frames }
}

// WithConfidenceThreshold sets the OCR acceptance threshold.
func WithConfidenceThreshold(threshold float64) Option {
	return func(s *settings) { s.threshold = threshold }
}

// WithRecognizer sets the jersey recognizer consulted for unresolved tracks.
func WithRecognizer(rec identity.Recognizer) Option {
	return func(s *settings) {
		if rec != nil {
			s.recognizer = rec
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
