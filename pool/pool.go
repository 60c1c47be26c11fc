// Package pool implements the bounded worker set a Request Driver checks
// workers out of: FIFO waiter scheduling, idle and max-idle policy, and
// fresh-vs-reuse handoff semantics.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	connpool "github.com/gofinch/connpool"
	"github.com/gofinch/connpool/conn"
	"github.com/gofinch/connpool/metrics"
	"github.com/gofinch/connpool/telemetry"
	"github.com/gofinch/connpool/worker"
)

// RestartPolicy reflects spec.md §4.D: a pool that self-stops on idle
// timeout is Transient (do not restart) when PoolMaxIdleTime is set, or
// Permanent (the pool never self-stops) when it is zero/unset.
type RestartPolicy int

const (
	Permanent RestartPolicy = iota
	Transient
)

// Config is everything a Pool needs at construction. poolcfg.Config is the
// viper/ozzo-validated, user-facing superset this is built from.
type Config struct {
	Name   string // finch_name, used as the registry key prefix
	Origin connpool.Origin
	PoolIdx int

	Size        int
	Dial        worker.Dial
	ConnMaxIdleTime time.Duration
	PoolMaxIdleTime time.Duration // 0 means Permanent (never self-stops)

	StartMetrics bool
	Registry     *metrics.Registry // defaults to metrics.Default

	Sink telemetry.Sink // defaults to telemetry.LogSink
}

// Pool is a bounded set of Workers serving one Origin.
type Pool struct {
	cfg Config

	free   chan *worker.Worker
	workers []*worker.Worker

	metricsBlock *metrics.Block

	closed    int32
	closeOnce sync.Once
	stopIdle  chan struct{}

	lastActivity atomic.Int64 // unix nano
}

// New builds a Pool with cfg.Size lazily-dialable workers pre-seeded into
// the free list (the data model's "uninitialized slots").
func New(cfg Config) *Pool {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if cfg.Registry == nil {
		cfg.Registry = metrics.Default
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.LogSink{}
	}

	p := &Pool{
		cfg:      cfg,
		free:     make(chan *worker.Worker, cfg.Size),
		workers:  make([]*worker.Worker, 0, cfg.Size),
		stopIdle: make(chan struct{}),
	}
	p.lastActivity.Store(time.Now().UnixNano())

	for i := 0; i < cfg.Size; i++ {
		w := worker.New(cfg.Origin, cfg.Dial, cfg.ConnMaxIdleTime, cfg.Sink)
		p.workers = append(p.workers, w)
		p.free <- w
	}

	if cfg.StartMetrics {
		p.metricsBlock = metrics.New(int64(cfg.Size))
		cfg.Registry.Register(cfg.Name, cfg.Origin.String(), p.metricsBlock)
	}

	if cfg.PoolMaxIdleTime > 0 {
		go p.watchIdle()
	}

	return p
}

// RestartPolicy reports Transient when PoolMaxIdleTime is set (the pool
// self-stops and should not be restarted after a clean idle exit) or
// Permanent when unset.
func (p *Pool) RestartPolicy() RestartPolicy {
	if p.cfg.PoolMaxIdleTime > 0 {
		return Transient
	}
	return Permanent
}

// Metrics returns the pool's metrics Block, or nil if StartMetrics=false.
func (p *Pool) Metrics() *metrics.Block {
	return p.metricsBlock
}

// Name is the finch_name this pool registered its metrics under.
func (p *Pool) Name() string {
	return p.cfg.Name
}

// Origin is the (scheme, host, port) this pool dials.
func (p *Pool) Origin() connpool.Origin {
	return p.cfg.Origin
}

// Sink is the telemetry sink the Request Driver emits queue.* events to.
func (p *Pool) Sink() telemetry.Sink {
	return p.cfg.Sink
}

// Checkout reserves a worker within poolTimeout: an idle worker (FIFO), an
// uninitialized slot (dial-on-demand), or a wait. On expiry it returns a
// *TimeoutError distinguishable from any request/transport error.
func (p *Pool) Checkout(ctx context.Context, poolTimeout time.Duration) (*worker.Worker, conn.Conn, worker.Tag, time.Duration, error) {
	if atomic.LoadInt32(&p.closed) == 1 {
		return nil, nil, 0, 0, ErrClosed
	}
	cctx, cancel := context.WithTimeout(ctx, poolTimeout)
	defer cancel()
	start := time.Now()

	for {
		var w *worker.Worker
		select {
		case w = <-p.free:
		case <-cctx.Done():
			return nil, nil, 0, 0, &TimeoutError{Origin: p.cfg.Origin.String(), PoolSize: p.cfg.Size, Waited: time.Since(start)}
		}

		c, tag, idle, err := w.Checkout(cctx)
		if err != nil {
			p.free <- w
			select {
			case <-cctx.Done():
				return nil, nil, 0, 0, &TimeoutError{Origin: p.cfg.Origin.String(), PoolSize: p.cfg.Size, Waited: time.Since(start)}
			default:
				continue
			}
		}

		p.touchActivity()
		if p.metricsBlock != nil {
			p.metricsBlock.Add(metrics.InUseConnections, 1)
		}
		return w, c, tag, idle, nil
	}
}

// Checkin returns a worker to the free list after the driver's exchange
// completes. ok reports whether the Connection should be kept (re-adopted)
// or evicted.
func (p *Pool) Checkin(w *worker.Worker, ok bool) {
	w.Checkin(ok)
	if p.metricsBlock != nil {
		p.metricsBlock.Add(metrics.InUseConnections, -1)
	}
	p.touchActivity()
	if atomic.LoadInt32(&p.closed) == 1 {
		w.Stop()
		return
	}
	p.free <- w
}

// CloseIdleConnections evicts every worker currently Idle, without closing
// the pool itself. Workers in use are left untouched.
func (p *Pool) CloseIdleConnections() {
	drained := make([]*worker.Worker, 0, p.cfg.Size)
	for {
		select {
		case w := <-p.free:
			drained = append(drained, w)
		default:
			for _, w := range drained {
				if w.State() == worker.StateIdle {
					w.Stop()
				}
				p.free <- w
			}
			return
		}
	}
}

// Close stops every worker and unregisters the pool's metrics. Idempotent.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		atomic.StoreInt32(&p.closed, 1)
		close(p.stopIdle)
		for _, w := range p.workers {
			w.Stop()
		}
		if p.metricsBlock != nil {
			p.cfg.Registry.Unregister(p.cfg.Name, p.cfg.Origin.String(), p.metricsBlock)
		}
	})
}

func (p *Pool) touchActivity() {
	p.lastActivity.Store(time.Now().UnixNano())
}

// watchIdle self-stops the pool once it has seen no checkout activity for
// PoolMaxIdleTime, emitting PoolMaxIdleTimeExceeded.
func (p *Pool) watchIdle() {
	interval := p.cfg.PoolMaxIdleTime / 4
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopIdle:
			return
		case <-ticker.C:
			idle := time.Since(time.Unix(0, p.lastActivity.Load()))
			if idle >= p.cfg.PoolMaxIdleTime {
				p.cfg.Sink.Emit(telemetry.PoolMaxIdleTimeExceeded{
					Scheme: p.cfg.Origin.Scheme, Host: p.cfg.Origin.Host, Port: p.cfg.Origin.Port,
				})
				p.Close()
				return
			}
		}
	}
}
