package driver

import "time"

// Options are the per-request knobs spec.md §6 calls "per-request options".
type Options struct {
	PoolTimeout    time.Duration // default 5000ms
	ReceiveTimeout time.Duration // default 15000ms

	// Clock is called exactly three times per synchronous Request: before
	// checkout starts, right after checkout returns (usage start), and
	// after the exchange completes (usage end). Tests inject a stub
	// sequence (spec.md §8 S3/S4) to pin exact checkout/usage durations;
	// library callers leave it nil for time.Now.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PoolTimeout == 0 {
		o.PoolTimeout = 5 * time.Second
	}
	if o.ReceiveTimeout == 0 {
		o.ReceiveTimeout = 15 * time.Second
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
