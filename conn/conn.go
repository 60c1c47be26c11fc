// Package conn defines the Connection contract a Worker drives: the
// codec-level HTTP/1 exchange, mode switching, and the liveness probe that
// decides whether a connection may be reused. Concrete wire encoding lives
// in package httpconn; conn only states the contract workers and pools
// depend on.
package conn

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Mode tracks who drives byte delivery on a Connection. A Connection in a
// Worker's idle slot is Active (it may receive codec-level probes);
// during an exchange it is Passive (the caller pulls).
type Mode int

const (
	ModeActive Mode = iota
	ModePassive
)

// PartKind identifies one piece of a streamed response.
type PartKind int

const (
	PartStatus PartKind = iota
	PartHeader
	PartBodyChunk
	PartTrailer
	PartEnd
)

// Part is one unit a Fold consumes, in protocol order: exactly one
// PartStatus, one PartHeader, zero or more PartBodyChunk, an optional
// PartTrailer, then one PartEnd.
type Part struct {
	Kind       PartKind
	StatusCode int
	Proto      string
	Header     http.Header
	Chunk      []byte
}

// Fold is the caller-supplied response consumer. It returns the next
// accumulator and whether to keep receiving (halt=true stops early without
// treating it as an error).
type Fold func(part Part, acc any) (next any, halt bool, err error)

// Request is the minimal request shape the codec sends.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// DiscardResult classifies how an unsolicited message was handled.
type DiscardResult int

const (
	DiscardConsumed DiscardResult = iota
	DiscardUnknown
)

// Conn is the per-exchange handle a Worker wraps. Exactly one of the
// Worker's idle slot or the calling driver owns a Conn at any time;
// ownership moves explicitly through Transfer.
type Conn interface {
	// Connect dials and completes any handshake needed before Request.
	Connect(ctx context.Context) error
	// Request drives one exchange, invoking fold once per Part in
	// protocol order, and returns the final accumulator.
	Request(ctx context.Context, req *Request, acc any, fold Fold, receiveTimeout time.Duration) (any, error)
	// SetMode switches who is expected to pull bytes next.
	SetMode(m Mode)
	// Reusable is the authoritative staleness oracle: considers idle
	// time against the connection's configured max idle time and any
	// protocol-level signal such as a peer half-close.
	Reusable(idle time.Duration) bool
	// Discard handles an unsolicited message delivered while Active.
	Discard(msg []byte) (DiscardResult, error)
	// Open reports whether the underlying socket is still usable.
	Open() bool
	// Transfer moves control of a freshly-dialed socket (created in the
	// caller's context) back to the owning Worker. A no-op for
	// implementations with no separate task/goroutine ownership, but
	// must still guarantee future idle I/O routes to the Worker.
	Transfer() error
	// Close is idempotent and tolerant of an already-closed socket.
	Close() error
	// RemoteAddr reports the dialed peer.
	RemoteAddr() net.Addr
}
