package classifier

import "github.com/okian/hoopvision/pkg/logger"

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithCooldown sets the minimum frame gap between two counted shots.
func WithCooldown(frames int64) Option {
	return func(c *Classifier) {
		c.cooldown = frames
	}
}

// WithReboundWindow sets how many frames after a shot credit rebounds.
func WithReboundWindow(frames int64) Option {
	return func(c *Classifier) {
		c.reboundWindow = frames
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}
