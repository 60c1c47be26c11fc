package httpconn

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofinch/connpool/conn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func serverAddr(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestConn_RequestRoundTrip(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "hello world")
	})

	c := New(Config{Addr: serverAddr(t, srv), Host: serverAddr(t, srv)})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	req := &conn.Request{Method: http.MethodGet, Path: "/"}
	var status int
	var body strings.Builder
	var header http.Header
	_, err := c.Request(context.Background(), req, nil, func(part conn.Part, acc any) (any, bool, error) {
		switch part.Kind {
		case conn.PartStatus:
			status = part.StatusCode
		case conn.PartHeader:
			header = part.Header
		case conn.PartBodyChunk:
			body.Write(part.Chunk)
		}
		return acc, false, nil
	}, 2*time.Second)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "yes", header.Get("X-Test"))
	assert.Equal(t, "hello world", body.String())
	assert.True(t, c.Open())
}

func TestConn_ChunkedRoundTrip(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "first-")
		flusher.Flush()
		fmt.Fprint(w, "second")
		flusher.Flush()
	})

	c := New(Config{Addr: serverAddr(t, srv), Host: serverAddr(t, srv)})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	req := &conn.Request{Method: http.MethodGet, Path: "/"}
	var body strings.Builder
	_, err := c.Request(context.Background(), req, nil, func(part conn.Part, acc any) (any, bool, error) {
		if part.Kind == conn.PartBodyChunk {
			body.Write(part.Chunk)
		}
		return acc, false, nil
	}, 2*time.Second)

	require.NoError(t, err)
	assert.Equal(t, "first-second", body.String())
}

func TestConn_FoldHaltStopsEarly(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ignored body")
	})

	c := New(Config{Addr: serverAddr(t, srv), Host: serverAddr(t, srv)})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	req := &conn.Request{Method: http.MethodGet, Path: "/"}
	var sawBody bool
	_, err := c.Request(context.Background(), req, nil, func(part conn.Part, acc any) (any, bool, error) {
		if part.Kind == conn.PartHeader {
			return acc, true, nil // halt right after headers
		}
		if part.Kind == conn.PartBodyChunk {
			sawBody = true
		}
		return acc, false, nil
	}, 2*time.Second)

	require.NoError(t, err)
	assert.False(t, sawBody)
	// Halting before PartEnd leaves "ignored body" undrained on the wire;
	// the connection must not be left open for reuse.
	assert.False(t, c.Open())
}

func TestConn_OpenAndCloseAreIdempotent(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := New(Config{Addr: serverAddr(t, srv), Host: serverAddr(t, srv)})
	require.NoError(t, c.Connect(context.Background()))

	assert.True(t, c.Open())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.Open())
}

func TestConn_ReusableRejectsExceededIdleTime(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := New(Config{Addr: serverAddr(t, srv), Host: serverAddr(t, srv), MaxIdleTime: 10 * time.Millisecond})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.False(t, c.Reusable(time.Hour))
}
