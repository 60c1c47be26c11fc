package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	connpool "github.com/gofinch/connpool"
	"github.com/gofinch/connpool/internal/conntest"
	"github.com/gofinch/connpool/metrics"
	"github.com/gofinch/connpool/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrigin() connpool.Origin {
	return connpool.Origin{Scheme: "http", Host: "example.test", Port: 80}
}

func newTestPool(t *testing.T, size int, d *conntest.Dialer) *Pool {
	t.Helper()
	return New(Config{
		Name:         "test",
		Origin:       testOrigin(),
		Size:         size,
		Dial:         d.Dial,
		StartMetrics: true,
		Registry:     metrics.NewRegistry(16),
	})
}

// TestPool_MetricsDisabled mirrors spec.md §8 S1.
func TestPool_MetricsDisabled(t *testing.T) {
	d := &conntest.Dialer{}
	reg := metrics.NewRegistry(16)
	p := New(Config{
		Name:         "svc",
		Origin:       testOrigin(),
		Size:         1,
		Dial:         d.Dial,
		StartMetrics: false,
		Registry:     reg,
	})
	defer p.Close()

	w, c, _, _, err := p.Checkout(context.Background(), time.Second)
	require.NoError(t, err)
	p.Checkin(w, c.Open())

	_, err = reg.GetStatus(p.Name(), p.Origin().String())
	assert.ErrorIs(t, err, metrics.ErrMetricsNotFound)
	assert.Nil(t, p.Metrics())
}

func TestPool_CheckoutCheckinCountingReturnsToZero(t *testing.T) {
	d := &conntest.Dialer{}
	p := newTestPool(t, 5, d)
	defer p.Close()

	var held []*worker.Worker
	for i := 0; i < 3; i++ {
		w, _, _, _, err := p.Checkout(context.Background(), time.Second)
		require.NoError(t, err)
		held = append(held, w)
	}
	assert.EqualValues(t, 3, p.Metrics().GetStatus().InUse)

	for _, w := range held {
		p.Checkin(w, true)
	}
	assert.EqualValues(t, 0, p.Metrics().GetStatus().InUse)
}

// TestPool_BoundedConcurrency mirrors spec.md §8 property 2: in_use never
// exceeds pool_size, checked by racing N goroutines against a pool of
// size N/3 and polling the gauge throughout.
func TestPool_BoundedConcurrency(t *testing.T) {
	d := &conntest.Dialer{}
	const size = 4
	p := newTestPool(t, size, d)
	defer p.Close()

	var wg sync.WaitGroup
	var maxSeen int64
	var mu sync.Mutex
	for i := 0; i < size*3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, c, _, _, err := p.Checkout(context.Background(), time.Second)
			if err != nil {
				return
			}
			mu.Lock()
			if cur := p.Metrics().GetStatus().InUse; cur > maxSeen {
				maxSeen = cur
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			p.Checkin(w, c.Open())
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, maxSeen, int64(size))
	assert.EqualValues(t, 0, p.Metrics().GetStatus().InUse)
}

// TestPool_CheckoutTimeout mirrors spec.md §8 S6: a pool of size 1 with
// one caller holding the connection surfaces a *TimeoutError to a second
// caller within its pool_timeout, without consuming a worker.
func TestPool_CheckoutTimeout(t *testing.T) {
	d := &conntest.Dialer{}
	p := newTestPool(t, 1, d)
	defer p.Close()

	w1, _, _, _, err := p.Checkout(context.Background(), time.Second)
	require.NoError(t, err)

	start := time.Now()
	_, _, _, _, err = p.Checkout(context.Background(), 50*time.Millisecond)
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.NotEmpty(t, timeoutErr.Hint())
	assert.Less(t, elapsed, 500*time.Millisecond)

	p.Checkin(w1, true)
}

// TestPool_FIFOFairness mirrors spec.md §8 property 3: the (N+1)-th
// caller on a pool of size N acquires the first released worker.
func TestPool_FIFOFairness(t *testing.T) {
	d := &conntest.Dialer{}
	p := newTestPool(t, 1, d)
	defer p.Close()

	w, _, _, _, err := p.Checkout(context.Background(), time.Second)
	require.NoError(t, err)

	type result struct {
		order int
		t     time.Time
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		i := i
		go func() {
			_, _, _, _, err := p.Checkout(context.Background(), 2*time.Second)
			if err == nil {
				results <- result{i, time.Now()}
			}
			time.Sleep(20 * time.Millisecond)
		}()
		time.Sleep(10 * time.Millisecond) // stagger enqueue order
	}

	time.Sleep(30 * time.Millisecond)
	p.Checkin(w, true)

	first := <-results
	assert.Equal(t, 0, first.order, "earliest waiter must win the first release")
}

func TestPool_FreshCheckoutYieldsOpenConnection(t *testing.T) {
	d := &conntest.Dialer{}
	p := newTestPool(t, 2, d)
	defer p.Close()

	_, c, tag, _, err := p.Checkout(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, worker.TagFresh, tag)
	require.True(t, c.Open())
}

func TestPool_CloseIdleConnections(t *testing.T) {
	d := &conntest.Dialer{}
	p := newTestPool(t, 2, d)
	defer p.Close()

	w, _, _, _, err := p.Checkout(context.Background(), time.Second)
	require.NoError(t, err)
	p.Checkin(w, true)

	p.CloseIdleConnections()
	assert.Equal(t, 1, d.Last().CloseCalls)
}

func TestPool_CloseStopsAllWorkers(t *testing.T) {
	d := &conntest.Dialer{}
	p := newTestPool(t, 3, d)

	w, _, _, _, err := p.Checkout(context.Background(), time.Second)
	require.NoError(t, err)
	p.Checkin(w, true)

	p.Close()
	p.Close() // idempotent

	_, _, _, _, err = p.Checkout(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPool_RestartPolicy(t *testing.T) {
	d := &conntest.Dialer{}
	permanent := New(Config{Name: "p", Origin: testOrigin(), Size: 1, Dial: d.Dial, Registry: metrics.NewRegistry(4)})
	defer permanent.Close()
	assert.Equal(t, Permanent, permanent.RestartPolicy())

	transient := New(Config{Name: "t", Origin: testOrigin(), Size: 1, Dial: d.Dial, PoolMaxIdleTime: 10 * time.Millisecond, Registry: metrics.NewRegistry(4)})
	defer transient.Close()
	assert.Equal(t, Transient, transient.RestartPolicy())
}
