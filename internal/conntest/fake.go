// Package conntest is test-support code shared by worker, pool, and
// driver tests: a fully in-memory conn.Conn that never touches a socket,
// so those packages' tests can drive exact Reusable/Request/Transfer
// outcomes instead of depending on a live server.
package conntest

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gofinch/connpool/conn"
)

// addr is a trivial net.Addr for FakeConn.RemoteAddr.
type addr string

func (a addr) Network() string { return "fake" }
func (a addr) String() string  { return string(a) }

// Fake is a scriptable conn.Conn. Zero value is a connection that opens
// cleanly, is always reusable, and whose Request replies with a bare
// 200/PartEnd round trip.
type Fake struct {
	mu sync.Mutex

	ConnectErr  error
	ReusableF   func(idle time.Duration) bool
	Parts       []conn.Part // emitted in order by Request, before PartEnd
	RequestErr  error       // returned by Request after emitting Parts
	RequestWait time.Duration
	PartDelay   time.Duration // paced delay before each Part send, for cancellation tests
	TransferErr error
	DiscardRes  conn.DiscardResult
	DiscardErr  error

	open bool

	ConnectCalls  int
	RequestCalls  int
	TransferCalls int
	CloseCalls    int
	SetModeCalls  []conn.Mode
}

// New returns a Fake already Open, matching what a Worker expects right
// after a successful Connect.
func New() *Fake {
	return &Fake{open: true}
}

func (f *Fake) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConnectCalls++
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.open = true
	return nil
}

func (f *Fake) Request(ctx context.Context, req *conn.Request, acc any, fold conn.Fold, receiveTimeout time.Duration) (any, error) {
	f.mu.Lock()
	f.RequestCalls++
	parts := append([]conn.Part(nil), f.Parts...)
	if len(parts) == 0 {
		parts = []conn.Part{{Kind: conn.PartStatus, StatusCode: 200}, {Kind: conn.PartHeader}}
	}
	wait := f.RequestWait
	partDelay := f.PartDelay
	reqErr := f.RequestErr
	f.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return acc, ctx.Err()
		}
	}

	for _, p := range parts {
		if partDelay > 0 {
			select {
			case <-time.After(partDelay):
			case <-ctx.Done():
				return acc, ctx.Err()
			}
		}
		var halt bool
		var err error
		acc, halt, err = fold(p, acc)
		if err != nil {
			return acc, err
		}
		if halt {
			return acc, nil
		}
	}
	acc, _, err := fold(conn.Part{Kind: conn.PartEnd}, acc)
	if err != nil {
		return acc, err
	}
	if reqErr != nil {
		var transportErr *conn.TransportError
		if errors.As(reqErr, &transportErr) {
			f.mu.Lock()
			f.open = false
			f.mu.Unlock()
		}
	}
	return acc, reqErr
}

func (f *Fake) SetMode(m conn.Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetModeCalls = append(f.SetModeCalls, m)
}

func (f *Fake) Reusable(idle time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReusableF != nil {
		return f.ReusableF(idle)
	}
	return true
}

func (f *Fake) Discard(msg []byte) (conn.DiscardResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.DiscardRes, f.DiscardErr
}

func (f *Fake) Open() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *Fake) Transfer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TransferCalls++
	return f.TransferErr
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CloseCalls++
	f.open = false
	return nil
}

func (f *Fake) RemoteAddr() net.Addr {
	return addr("fake-remote:0")
}

var _ conn.Conn = (*Fake)(nil)

// Dialer builds a worker.Dial-compatible func that hands out fresh Fakes,
// recording every one it created so a test can reach back in and script
// post-hoc behavior (e.g. flip Open() false to force an eviction).
type Dialer struct {
	mu        sync.Mutex
	DialErr   error
	Built     []*Fake
	PartDelay time.Duration // applied to every Fake this Dialer hands out
}

func (d *Dialer) Dial(ctx context.Context) (conn.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.DialErr != nil {
		return nil, d.DialErr
	}
	f := New()
	f.PartDelay = d.PartDelay
	d.Built = append(d.Built, f)
	return f, nil
}

// Last returns the most recently dialed Fake, or nil if none yet.
func (d *Dialer) Last() *Fake {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Built) == 0 {
		return nil
	}
	return d.Built[len(d.Built)-1]
}

// Count reports how many Fakes have been dialed so far.
func (d *Dialer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Built)
}
