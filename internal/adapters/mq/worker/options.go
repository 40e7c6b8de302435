// Package worker decodes raw frame records in parallel and hands the frames to
// a single consumer in input order.
package worker

import (
	"github.com/okian/hoopvision/internal/domain/identity"
	"github.com/okian/hoopvision/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithRecognizer runs rec in the workers for every track that arrives without
// a jersey reading.
func WithRecognizer(rec identity.Recognizer) Option {
	return func(p *Pool) {
		p.recognizer = rec
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
