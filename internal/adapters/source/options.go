package source

// Default detection filters.
const (
	DefaultFrameSkip           = 5
	DefaultPlayerMinConfidence = 0.3
	DefaultBallMinConfidence   = 0.4
)

// Option applies a configuration option to the Decoder.
type Option func(*Decoder)

// WithFrameSkip keeps only frames whose number is a multiple of n. n <= 1 keeps
// every frame.
func WithFrameSkip(n int64) Option {
	return func(d *Decoder) {
		if n < 1 {
			n = 1
		}
		d.frameSkip = n
	}
}

// WithPlayerMinConfidence drops player detections at or below c.
func WithPlayerMinConfidence(c float64) Option {
	return func(d *Decoder) { d.playerMin = c }
}

// WithBallMinConfidence drops ball detections at or below c.
func WithBallMinConfidence(c float64) Option {
	return func(d *Decoder) { d.ballMin = c }
}
