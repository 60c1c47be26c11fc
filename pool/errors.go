package pool

import (
	"fmt"
	"time"
)

// ErrClosed is returned by Checkout once the pool has been Closed.
var ErrClosed = closedError{}

type closedError struct{}

func (closedError) Error() string { return "pool: closed" }

// TimeoutError is the distinguishable PoolTimeout error: checkout did not
// find or dial a worker before pool_timeout elapsed. It carries a
// remediation hint about pool sizing, per spec.
type TimeoutError struct {
	Origin   string
	PoolSize int
	Waited   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"pool: checkout of %s timed out after %s (pool_size=%d); consider increasing pool_size or pool_timeout",
		e.Origin, e.Waited, e.PoolSize,
	)
}

// Hint is the human-readable remediation message the spec calls for.
func (e *TimeoutError) Hint() string {
	return fmt.Sprintf("pool_size is %d; raise it, shorten request latency, or raise pool_timeout", e.PoolSize)
}
