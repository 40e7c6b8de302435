package service

import (
	"github.com/okian/hoopvision/internal/domain/identity"
	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCalibration sets the calibration used by sessions created without one.
func WithCalibration(c model.Calibration) Option {
	return func(s *Service) {
		s.calibration = c
	}
}

// WithCooldown sets the shot cooldown for new sessions.
func WithCooldown(frames int64) Option {
	return func(s *Service) {
		s.cooldown = frames
	}
}

// WithReboundWindow sets the rebound window for new sessions.
func WithReboundWindow(frames int64) Option {
	return func(s *Service) {
		s.reboundWindow = frames
	}
}

// WithConfidenceThreshold sets the OCR acceptance threshold for new sessions.
func WithConfidenceThreshold(threshold float64) Option {
	return func(s *Service) {
		s.threshold = threshold
	}
}

// WithDetectionFilters sets the minimum player and ball confidence applied
// to submitted frames.
func WithDetectionFilters(player, ball float64) Option {
	return func(s *Service) {
		s.playerMin = player
		s.ballMin = ball
	}
}

// WithDedupeSize sets the size of the frame retry cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRecognizer sets the jersey recognizer handed to every session.
func WithRecognizer(rec identity.Recognizer) Option {
	return func(s *Service) {
		if rec != nil {
			s.recognizer = rec
		}
	}
}

// WithArchive persists closed sessions.
func WithArchive(a Archiver) Option {
	return func(s *Service) {
		s.archive = a
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
