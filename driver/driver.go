// Package driver is the thin orchestration layer spec.md §4.E calls the
// Request Driver: it wraps one Pool checkout/exchange/checkin cycle with
// telemetry and metrics, and layers a streaming/cancellable mode on top of
// the same synchronous path.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/gofinch/connpool/conn"
	"github.com/gofinch/connpool/metrics"
	"github.com/gofinch/connpool/pool"
	"github.com/gofinch/connpool/telemetry"
	"github.com/gofinch/connpool/worker"
)

// Request drives one synchronous exchange against p: checkout, connect if
// needed, stream the response through fold, then checkin. It returns the
// caller's final accumulator.
//
// A checkout timeout surfaces as the pool's own *pool.TimeoutError,
// distinguishable from any request/transport error by its sentinel shape;
// every other error is propagated unchanged, matching spec.md §4.E step 7.
func Request(ctx context.Context, p *pool.Pool, req *conn.Request, acc any, fold conn.Fold, opts Options) (result any, err error) {
	opts = opts.withDefaults()
	sink := p.Sink()
	startTime := opts.Clock()

	defer func() {
		if r := recover(); r != nil {
			perr := fmt.Errorf("driver: panic in exchange: %v", r)
			sink.Emit(telemetry.QueueException{Pool: p.Name(), StartTime: startTime, Err: perr})
			panic(r)
		}
	}()

	sink.Emit(telemetry.QueueStart{Pool: p.Name()})

	checkoutStart := startTime
	w, c, tag, idleTime, err := p.Checkout(ctx, opts.PoolTimeout)
	usageStart := opts.Clock()

	sink.Emit(telemetry.QueueStop{Pool: p.Name(), IdleTime: idleTime})

	if err != nil {
		// A *pool.TimeoutError means no worker was consumed; nothing to
		// record against the metrics block and nothing to check back in.
		return nil, err
	}

	block := p.Metrics()
	recordCheckout(block, checkoutStart, usageStart)

	// Track completion independently of the Connection implementation:
	// readopt must refuse to re-pool a halted/cancelled exchange even if
	// the Conn itself still reports Open() (e.g. a cancelled AsyncRequest
	// fold halts without the codec ever seeing a transport-level break).
	completed := false
	tracked := func(part conn.Part, acc any) (any, bool, error) {
		next, halt, ferr := fold(part, acc)
		if ferr == nil && part.Kind == conn.PartEnd {
			completed = true
		}
		return next, halt, ferr
	}

	result, reqErr := c.Request(ctx, req, acc, tracked, opts.ReceiveTimeout)
	usageEnd := opts.Clock()
	recordUsage(block, usageStart, usageEnd)

	keep := readopt(c, tag, completed)
	p.Checkin(w, keep)

	return result, reqErr
}

// readopt performs the handoff spec.md §4.D describes: a fresh Connection
// was dialed in the caller's context and must Transfer ownership back to
// the Worker before re-adoption; a reused Connection never left Worker
// ownership and needs no transfer. A Connection is re-adopted only if the
// exchange ran all the way to PartEnd — a halted or cancelled exchange
// always leaves the Worker evicted (spec.md §4.E's "evicted if left in an
// indeterminate state") — and only if it is still Open afterward.
func readopt(c conn.Conn, tag worker.Tag, completed bool) bool {
	if !completed {
		return false
	}
	if tag == worker.TagFresh {
		if err := c.Transfer(); err != nil {
			return false
		}
	}
	return c.Open()
}

func recordCheckout(b *metrics.Block, start, end time.Time) {
	if b == nil {
		return
	}
	us := end.Sub(start).Microseconds()
	b.Add(metrics.TotalCheckoutCount, 1)
	b.Add(metrics.TotalCheckoutTimeUS, us)
	b.PutMax(metrics.MaxCheckoutTimeUS, us)
}

func recordUsage(b *metrics.Block, start, end time.Time) {
	if b == nil {
		return
	}
	us := end.Sub(start).Microseconds()
	b.Add(metrics.TotalUsageTimeUS, us)
	b.PutMax(metrics.MaxUsageTimeUS, us)
}

// GetPoolStatus implements spec.md §4.E's get_pool_status: every metrics
// Block registered under (name, origin) — one per pool replica backing
// that origin — mapped to its current snapshot. Returns
// metrics.ErrMetricsNotFound when no replica has metrics enabled.
func GetPoolStatus(registry *metrics.Registry, name, origin string) ([]metrics.Status, error) {
	if registry == nil {
		registry = metrics.Default
	}
	return registry.GetStatus(name, origin)
}
