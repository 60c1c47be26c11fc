// Package telemetry defines the typed events the pool and driver emit
// (spec section "External Interfaces: Telemetry events") and the Sink
// a caller attaches to receive them. With no sink attached, events still
// surface as structured log lines through poollog.
package telemetry

import "time"

// Event is any of the typed events below. Name matches the wire name the
// original event-naming scheme used, kept for operators migrating
// dashboards built against it.
type Event interface {
	Name() string
}

// QueueStart fires when a driver begins a checkout.
type QueueStart struct {
	Pool string
}

func (QueueStart) Name() string { return "queue.start" }

// QueueStop fires once checkout completes, successfully or not.
type QueueStop struct {
	Pool     string
	IdleTime time.Duration
}

func (QueueStop) Name() string { return "queue.stop" }

// QueueException fires when a panic or unexpected exit is caught at the
// driver boundary, just before the driver re-raises it.
type QueueException struct {
	Pool      string
	StartTime time.Time
	Err       error
}

func (QueueException) Name() string { return "queue.exception" }

// ConnMaxIdleTimeExceeded fires whenever a worker evicts its connection
// for exceeding max idle time. MaxIdleTimeExceededLegacy always fires
// alongside it for one release, per the dual-emit decision in DESIGN.md.
type ConnMaxIdleTimeExceeded struct {
	Scheme   string
	Host     string
	Port     int
	IdleTime time.Duration
}

func (ConnMaxIdleTimeExceeded) Name() string { return "conn_max_idle_time_exceeded" }

// MaxIdleTimeExceededLegacy is the deprecated alias of
// ConnMaxIdleTimeExceeded, slated for removal after one release.
type MaxIdleTimeExceededLegacy struct {
	Scheme   string
	Host     string
	Port     int
	IdleTime time.Duration
}

func (MaxIdleTimeExceededLegacy) Name() string { return "max_idle_time_exceeded" }

// PoolMaxIdleTimeExceeded fires once when the whole pool self-stops after
// sitting idle past pool_max_idle_time.
type PoolMaxIdleTimeExceeded struct {
	Scheme string
	Host   string
	Port   int
}

func (PoolMaxIdleTimeExceeded) Name() string { return "pool_max_idle_time_exceeded" }

// Sink receives every event a pool emits.
type Sink interface {
	Emit(e Event)
}

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}
