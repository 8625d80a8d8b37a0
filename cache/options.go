package cache

import "time"

type Option interface {
	apply(*options)
}

type options struct {
	fresh    time.Duration
	stale    time.Duration
	negative time.Duration
	timeout  time.Duration
}

type optionFunc func(*options)

func (fn optionFunc) apply(opts *options) {
	fn(opts)
}

// WithNegativeCaching remembers for up to d that a key does not exist, as
// reported by a Fetcher returning ErrDoesNotExist.
func WithNegativeCaching(d time.Duration) Option {
	return optionFunc(func(opts *options) {
		opts.negative = d
	})
}

// WithWriteTimeout bounds how long a cache write may take. The default is 5s.
func WithWriteTimeout(d time.Duration) Option {
	return optionFunc(func(opts *options) {
		opts.timeout = d
	})
}
