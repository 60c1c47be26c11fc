// Package httpconn is the concrete HTTP/1.1 Connection implementation the
// pool dials and drives. The pool's Worker/Pool machinery never imports it
// directly — it only depends on package conn's contract — but a library
// that cannot run a real exchange is not a complete module, so this codec
// exists to make worker/pool/driver testable end to end.
package httpconn

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofinch/connpool/conn"
	"github.com/gofinch/connpool/httpconn/http1"
)

// DialFunc opens the raw transport to addr. Overriding it keeps the pool
// transport-agnostic (proxies, TLS, test fakes) without the pool itself
// depending on net.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// DefaultDial is net.Dialer.DialContext over tcp.
func DefaultDial(ctx context.Context, network, addr string) (net.Conn, error) {
	d := net.Dialer{}
	return d.DialContext(ctx, network, addr)
}

// Config carries the per-worker dial and idle-policy settings threaded
// through from poolcfg.Config.
type Config struct {
	Addr           string // host:port to dial
	Host           string // Host header value
	DialFunc       DialFunc
	MaxIdleTime    time.Duration // Reusable() rejects a connection idle longer than this
	KeepaliveCount int           // TCP_KEEPCNT probes, 0 disables tuning
	KeepaliveIntvl int           // TCP_KEEPINTVL seconds
}

var _ conn.Conn = (*Conn)(nil)

// Conn is one dialed HTTP/1.1 connection. It is never shared across
// goroutines concurrently: the Worker holding it serializes all access.
type Conn struct {
	cfg  Config
	raw  net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer
	mode conn.Mode

	closed int32
}

// New constructs an unconnected Conn; Connect performs the dial. A fresh
// Conn starts Passive: it is usable for Request immediately after Connect,
// before any Worker idle slot has claimed it. Checkin switches it Active.
func New(cfg Config) *Conn {
	if cfg.DialFunc == nil {
		cfg.DialFunc = DefaultDial
	}
	return &Conn{cfg: cfg, mode: conn.ModePassive}
}

func (c *Conn) Connect(ctx context.Context) error {
	raw, err := c.cfg.DialFunc(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return &conn.TransportError{Err: fmt.Errorf("dial %s: %w", c.cfg.Addr, err)}
	}
	if tc, ok := raw.(*net.TCPConn); ok && c.cfg.KeepaliveCount > 0 {
		_ = tc.SetKeepAlive(true)
		_ = setKeepaliveParameters(tc, c.cfg.KeepaliveCount, c.cfg.KeepaliveIntvl)
	}
	c.raw = raw
	c.br = bufio.NewReader(raw)
	c.bw = bufio.NewWriter(raw)
	return nil
}

// Request writes req and streams the response through fold, one Part per
// protocol element, in order: status, header, zero or more body chunks,
// end. receiveTimeout bounds the whole exchange.
func (c *Conn) Request(ctx context.Context, req *conn.Request, acc any, fold conn.Fold, receiveTimeout time.Duration) (any, error) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return acc, conn.ErrClosed
	}
	if c.mode != conn.ModePassive {
		// Request is the caller pulling bytes; the Worker only hands out a
		// Conn after switching it into ModePassive (on both the fresh-dial
		// and idle-reuse paths). Seeing Active here means something called
		// Request on a Conn still sitting in, or believed to be in, the
		// idle slot.
		return acc, conn.ErrInvalidCall
	}
	deadline := time.Now().Add(receiveTimeout)
	_ = c.raw.SetDeadline(deadline)
	defer c.raw.SetDeadline(time.Time{})

	host := c.cfg.Host
	if host == "" {
		host = c.cfg.Addr
	}
	if err := http1.WriteRequest(c.bw, req.Method, req.Path, host, req.Header, len(req.Body), true); err != nil {
		return acc, &conn.TransportError{Err: err}
	}
	if len(req.Body) > 0 {
		if _, err := c.bw.Write(req.Body); err != nil {
			return acc, &conn.TransportError{Err: err}
		}
	}
	if err := c.bw.Flush(); err != nil {
		return acc, &conn.TransportError{Err: err}
	}

	head, err := http1.ReadResponseHead(c.br)
	if err != nil {
		return acc, &conn.TransportError{Err: err}
	}

	// A fold that halts before PartEnd leaves the response body (or the
	// header/status line's remaining bytes) undrained on the wire; the
	// next exchange on this socket would read those leftover bytes as its
	// own status line. Close rather than hand back a connection that
	// never finished draining its current response.
	acc, halt, err := fold(conn.Part{Kind: conn.PartStatus, StatusCode: head.StatusCode, Proto: head.Proto}, acc)
	if err != nil {
		return acc, err
	}
	if halt {
		_ = c.Close()
		return acc, nil
	}
	acc, halt, err = fold(conn.Part{Kind: conn.PartHeader, Header: head.Header}, acc)
	if err != nil {
		return acc, err
	}
	if halt {
		_ = c.Close()
		return acc, nil
	}

	body := http1.BodyReader(c.br, head)
	buf := make([]byte, 32*1024)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			acc, halt, err = fold(conn.Part{Kind: conn.PartBodyChunk, Chunk: chunk}, acc)
			if err != nil {
				return acc, err
			}
			if halt {
				_ = c.Close()
				return acc, nil
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return acc, &conn.TransportError{Err: rerr}
		}
	}

	acc, _, err = fold(conn.Part{Kind: conn.PartEnd}, acc)
	return acc, err
}

func (c *Conn) SetMode(m conn.Mode) {
	c.mode = m
}

// Reusable is the authoritative staleness oracle: too-long idle or a
// detected peer half-close both disqualify reuse.
func (c *Conn) Reusable(idle time.Duration) bool {
	if atomic.LoadInt32(&c.closed) == 1 {
		return false
	}
	if c.cfg.MaxIdleTime > 0 && idle > c.cfg.MaxIdleTime {
		return false
	}
	return c.probeHalfClose()
}

// probeHalfClose performs a one-byte read with an immediate deadline to detect whether
// the peer has closed its side while the connection sat idle.
func (c *Conn) probeHalfClose() bool {
	_ = c.raw.SetReadDeadline(time.Now())
	defer c.raw.SetReadDeadline(time.Time{})
	one := make([]byte, 1)
	n, err := c.raw.Read(one)
	if n > 0 {
		// Unsolicited bytes arrived; caller should route this through
		// Discard before trusting the connection further.
		return true
	}
	if err == nil {
		return true
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	return false
}

// Discard handles an unsolicited message observed while Active, e.g. from
// probeHalfClose. This codec has no server-pushed frames, so any bytes
// observed out of an exchange are unrecognized rather than fatal.
func (c *Conn) Discard(msg []byte) (conn.DiscardResult, error) {
	return conn.DiscardUnknown, nil
}

func (c *Conn) Open() bool {
	return atomic.LoadInt32(&c.closed) == 0
}

// Transfer is a no-op: this implementation has no separate task/goroutine
// owning the socket, so control is already wherever the caller holding
// *Conn is. Kept to satisfy the contract's ownership-handoff step.
func (c *Conn) Transfer() error {
	return nil
}

func (c *Conn) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	if c.raw == nil {
		return nil
	}
	return c.raw.RemoteAddr()
}

// Header is re-exported for callers building requests without importing
// net/http directly.
type Header = http.Header
