// Package worker implements the per-slot state machine a Pool manages:
// Uninitialized -> Idle <-> InUse -> {Idle, Evicted}. A Worker wraps one
// conn.Conn and owns its lifecycle for as long as the Pool holds it.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	connpool "github.com/gofinch/connpool"
	"github.com/gofinch/connpool/conn"
	"github.com/gofinch/connpool/internal/delay"
	"github.com/gofinch/connpool/telemetry"
)

// State is the worker's lifecycle position.
type State int32

const (
	StateUninitialized State = iota
	StateIdle
	StateInUse
	StateEvicted
)

// Tag marks whether a checked-out Conn was freshly dialed or drawn from
// the idle slot, which decides whether the caller owes a Transfer on
// checkin.
type Tag int

const (
	TagFresh Tag = iota
	TagReuse
)

// ErrInUse is returned by Checkout if the pool's own bookkeeping is ever
// violated and a second caller reaches an already-handed-out worker.
var ErrInUse = errors.New("worker: already in use")

// Dial opens a new conn.Conn for this worker's origin.
type Dial func(ctx context.Context) (conn.Conn, error)

// Worker wraps one Connection and serializes access to it: checkout ->
// caller exchange -> checkin is totally ordered per worker.
type Worker struct {
	origin      connpool.Origin
	dial        Dial
	maxIdleTime time.Duration
	sink        telemetry.Sink
	backoff     delay.Delay

	mu          sync.Mutex
	state       State
	c           conn.Conn
	lastCheckin time.Time
}

// New builds a Worker bound to one origin. sink receives idle-eviction
// telemetry; a nil sink is replaced with telemetry.NopSink.
func New(origin connpool.Origin, dial Dial, maxIdleTime time.Duration, sink telemetry.Sink) *Worker {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Worker{
		origin:      origin,
		dial:        dial,
		maxIdleTime: maxIdleTime,
		sink:        sink,
		backoff:     delay.New(0, 0),
		state:       StateUninitialized,
	}
}

// State reports the worker's current lifecycle position.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Checkout reserves this worker for the caller, dialing fresh if needed or
// validating reuse if idle. It evicts and redials in place when the idle
// connection fails Reusable, absorbing IdleExpired without surfacing it —
// the caller (the Pool) only sees the eventual fresh/reuse handoff or a
// dial error.
func (w *Worker) Checkout(ctx context.Context) (c conn.Conn, tag Tag, idleTime time.Duration, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateInUse:
		return nil, TagFresh, 0, ErrInUse

	case StateIdle:
		idle := time.Since(w.lastCheckin)
		if w.c.Reusable(idle) {
			w.c.SetMode(conn.ModePassive)
			w.state = StateInUse
			return w.c, TagReuse, idle, nil
		}
		w.emitIdleExceeded(idle)
		w.closeLocked()
		fallthrough

	default: // StateUninitialized, StateEvicted
		nc, err := w.dialAndConnect(ctx)
		if err != nil {
			w.state = StateEvicted
			return nil, TagFresh, 0, err
		}
		nc.SetMode(conn.ModePassive)
		w.c = nc
		w.state = StateInUse
		return nc, TagFresh, 0, nil
	}
}

// dialAndConnect retries a transient dial failure with exponential backoff
// (the same pattern the donor's accept loop uses for net.Error.Temporary())
// until ctx is done, then surfaces the last error.
func (w *Worker) dialAndConnect(ctx context.Context) (conn.Conn, error) {
	w.backoff.Reset()
	for {
		nc, err := w.dial(ctx)
		if err == nil {
			if err = nc.Connect(ctx); err == nil {
				return nc, nil
			}
			_ = nc.Close()
		}
		if !isTemporary(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(w.backoff.Next()):
		}
	}
}

func isTemporary(err error) bool {
	var ne interface{ Temporary() bool }
	if errors.As(err, &ne) {
		return ne.Temporary()
	}
	return false
}

// Checkin returns the worker to Idle on ok, or evicts it. Any Transfer a
// fresh Connection needed was already performed by the caller; ok only
// records the outcome of that handoff.
func (w *Worker) Checkin(ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateInUse {
		return
	}
	if !ok || w.c == nil || !w.c.Open() {
		w.closeLocked()
		return
	}
	w.c.SetMode(conn.ModeActive)
	w.lastCheckin = time.Now()
	w.state = StateIdle
}

// HandleUnsolicited dispatches an out-of-band message to the idle
// connection's Discard, evicting on a fatal result.
func (w *Worker) HandleUnsolicited(msg []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateIdle || w.c == nil {
		return
	}
	if _, err := w.c.Discard(msg); err != nil {
		w.closeLocked()
	}
}

// Stop evicts the worker unconditionally, used on pool shutdown and pool
// idle self-stop.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

func (w *Worker) closeLocked() {
	if w.c != nil {
		_ = w.c.Close()
		w.c = nil
	}
	w.state = StateEvicted
}

func (w *Worker) emitIdleExceeded(idle time.Duration) {
	w.sink.Emit(telemetry.ConnMaxIdleTimeExceeded{
		Scheme: w.origin.Scheme, Host: w.origin.Host, Port: w.origin.Port, IdleTime: idle,
	})
	w.sink.Emit(telemetry.MaxIdleTimeExceededLegacy{
		Scheme: w.origin.Scheme, Host: w.origin.Host, Port: w.origin.Port, IdleTime: idle,
	})
}
