package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*ringDeduper)

// WithMaxSize sets how many keys are remembered. Once full the oldest key is
// evicted. maxSize <= 0 keeps every key.
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		d.maxSize = maxSize
	}
}
