package store

import "time"

// options carries the injectable knobs shared by the stores.
type options struct {
	ttl time.Duration
	now func() time.Time
}

// Option adjusts store construction.
type Option func(*options)

// WithCacheTTL overrides the snapshot cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock injects the clock used for cache expiry and soft-delete
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{ttl: DefaultCacheTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
