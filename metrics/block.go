// Package metrics implements the pool's lock-free counter block and the
// process-wide directory that maps an origin to every Block backing it.
package metrics

import (
	"errors"
	"math"
	"time"

	"go.uber.org/atomic"
)

// Index names a well-known slot in the counter block.
type Index int

const (
	PoolSize Index = iota
	InUseConnections
	TotalCheckoutCount
	TotalCheckoutTimeUS
	TotalUsageTimeUS
	MaxCheckoutTimeUS
	MaxUsageTimeUS
	resetLock
	resetLockQueue
	numCounters
)

// timingSet are the counters the writer protocol guards on Add; gauges
// bypass it entirely, and the two max counters are written only through
// PutMax (already best-effort, never blocking).
var timingSet = [numCounters]bool{
	TotalCheckoutCount:  true,
	TotalCheckoutTimeUS: true,
	TotalUsageTimeUS:    true,
}

// Block is a fixed-size array of atomic counters for one pool instance.
// Reads never block writers; a deadline-bounded Reset briefly pauses
// timing-set writers without a mutex on the hot path.
type Block struct {
	counters [numCounters]atomic.Int64
}

// New allocates a Block and writes the pool_size gauge once.
func New(poolSize int64) *Block {
	b := &Block{}
	b.counters[PoolSize].Store(poolSize)
	return b
}

// Add applies delta to a gauge unconditionally, or to a timing-set counter
// through the writer protocol — dropped silently if a Reset holds the lock.
func (b *Block) Add(idx Index, delta int64) {
	if !timingSet[idx] {
		b.counters[idx].Add(delta)
		return
	}
	if b.counters[resetLock].Load() != 0 {
		return
	}
	b.counters[resetLockQueue].Inc()
	b.counters[idx].Add(delta)
	b.counters[resetLockQueue].Dec()
}

// PutMax writes value into idx iff it is currently greater. Read-then-write
// without CAS: a lower concurrent writer can clobber a higher one. Tests
// must only assert max >= avg, never an exact maximum under races.
func (b *Block) PutMax(idx Index, value int64) {
	if value > b.counters[idx].Load() {
		b.counters[idx].Store(value)
	}
}

// Status is the snapshot returned by get_pool_status.
type Status struct {
	Available     int64
	InUse         int64
	AvgCheckoutUS int64
	MaxCheckoutUS int64
	AvgUsageUS    int64
	MaxUsageUS    int64
}

// GetStatus computes the current snapshot. Never blocks writers.
func (b *Block) GetStatus() Status {
	count := b.counters[TotalCheckoutCount].Load()
	return Status{
		Available:     b.counters[PoolSize].Load() - b.counters[InUseConnections].Load(),
		InUse:         b.counters[InUseConnections].Load(),
		AvgCheckoutUS: avg(b.counters[TotalCheckoutTimeUS].Load(), count),
		MaxCheckoutUS: b.counters[MaxCheckoutTimeUS].Load(),
		AvgUsageUS:    avg(b.counters[TotalUsageTimeUS].Load(), count),
		MaxUsageUS:    b.counters[MaxUsageTimeUS].Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return int64(math.Round(float64(total) / float64(count)))
}

// ErrResetTimeout is returned when Reset cannot quiesce timing writers
// before its deadline. Timing values may be inconsistent afterward: a
// count can land without its paired time.
var ErrResetTimeout = errors.New("metrics: reset timed out waiting for writers to quiesce")

// resetSpinInterval matches the spec's "approximately 5ms" spin; not
// configurable.
const resetSpinInterval = 5 * time.Millisecond

// Reset zeroes every timing-set counter (including the best-effort max
// counters, so a subsequent GetStatus reports zero avg and zero max)
// atomically with respect to Add. It blocks new timing writers for its
// duration but never blocks gauge writers or readers.
func (b *Block) Reset(deadline time.Time) error {
	b.counters[resetLock].Store(1)
	for b.counters[resetLockQueue].Load() > 0 && time.Now().Before(deadline) {
		time.Sleep(resetSpinInterval)
	}
	if b.counters[resetLockQueue].Load() > 0 {
		b.counters[resetLock].Store(0)
		return ErrResetTimeout
	}
	b.counters[TotalCheckoutCount].Store(0)
	b.counters[TotalCheckoutTimeUS].Store(0)
	b.counters[TotalUsageTimeUS].Store(0)
	b.counters[MaxCheckoutTimeUS].Store(0)
	b.counters[MaxUsageTimeUS].Store(0)
	b.counters[resetLock].Store(0)
	return nil
}
