package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithSeed fixes the priority generator seed so tree shape is reproducible.
func WithSeed(seed uint64) Option {
	return func(s *TreapStore) {
		s.seed = seed
	}
}
