package driver

import (
	"context"
	"sync"

	"github.com/gofinch/connpool/conn"
	"github.com/gofinch/connpool/pool"
)

// Part is one response part delivered over an AsyncRequest channel, or the
// terminal Done/Err event spec.md §4.E's send_async_response describes:
// {token, :done} on completion, {token, {:error, reason}} on failure.
// Exactly one of Err/Done is set on the terminal event; Part carries every
// event in between.
type Part struct {
	Part conn.Part
	Done bool
	Err  error
}

var asyncCancels sync.Map // Token -> context.CancelFunc

// AsyncRequest spawns a driver goroutine linked to the caller: it drives
// Request with a fold that forwards each Part onto the returned channel,
// polling for cancellation at every send (spec.md §9's "observable at
// every suspension point"). The channel is closed after the terminal
// Done/Err event. The caller must keep draining it (or call
// CancelAsyncRequest) to let the driver goroutine, and the Connection it
// holds, unwind.
func AsyncRequest(ctx context.Context, p *pool.Pool, req *conn.Request, opts Options) (Token, <-chan Part) {
	token := newToken(p.Name())
	// Unbuffered: a part is only ever handed over to a caller that is
	// receiving, so nothing queued before a cancel can surface after it.
	ch := make(chan Part)

	dctx, cancel := context.WithCancel(ctx)
	asyncCancels.Store(token, cancel)

	go func() {
		defer asyncCancels.Delete(token)
		defer close(ch)

		fold := func(part conn.Part, acc any) (any, bool, error) {
			select {
			case <-dctx.Done():
				return acc, true, nil
			default:
			}
			select {
			case ch <- Part{Part: part}:
				return acc, false, nil
			case <-dctx.Done():
				return acc, true, nil
			}
		}

		_, err := Request(dctx, p, req, nil, fold, opts)

		// Cancellation (caller death or explicit CancelAsyncRequest) is
		// absorbed, not reported back, per spec.md §7's Cancelled kind.
		if dctx.Err() != nil {
			return
		}
		if err != nil {
			ch <- Part{Err: err}
			return
		}
		ch <- Part{Done: true}
	}()

	return token, ch
}

// CancelAsyncRequest detaches the driver goroutine behind token from its
// caller and force-terminates it. The driver's next attempt to deliver a
// part observes the cancelled context and unwinds through the normal
// checkin path; any held Connection is evicted if left indeterminate.
// Cancelling a token that has already completed, or was never issued, is
// a no-op.
func CancelAsyncRequest(token Token) {
	if v, ok := asyncCancels.LoadAndDelete(token); ok {
		v.(context.CancelFunc)()
	}
}
