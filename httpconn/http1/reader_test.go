package http1

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadResponseHead_ContentLength(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nX-A: 1\r\nX-A: 2\r\n\r\nhello"
	br := bufio.NewReader(strings.NewReader(raw))

	head, err := ReadResponseHead(br)
	require.NoError(t, err)
	assert.Equal(t, 200, head.StatusCode)
	assert.Equal(t, int64(5), head.ContentLength)
	assert.False(t, head.Chunked)
	assert.Equal(t, []string{"1", "2"}, head.Header["X-A"])

	body, err := io.ReadAll(BodyReader(br, head))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestReadResponseHead_NoBody(t *testing.T) {
	raw := "HTTP/1.1 204 No Content\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(raw))

	head, err := ReadResponseHead(br)
	require.NoError(t, err)
	assert.Equal(t, int64(0), head.ContentLength)

	body, err := io.ReadAll(BodyReader(br, head))
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestReadResponseHead_Chunked(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"6\r\nfirst-\r\n6\r\nsecond\r\n0\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(raw))

	head, err := ReadResponseHead(br)
	require.NoError(t, err)
	assert.True(t, head.Chunked)

	body, err := io.ReadAll(BodyReader(br, head))
	require.NoError(t, err)
	assert.Equal(t, "first-second", string(body))
}

func TestReadResponseHead_ChunkedWithTrailers(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n0\r\nX-Trailer: done\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(raw))

	head, err := ReadResponseHead(br)
	require.NoError(t, err)

	body, err := io.ReadAll(BodyReader(br, head))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestReadResponseHead_Malformed(t *testing.T) {
	tests := []string{
		"not-a-status-line\r\n\r\n",
		"HTTP/1.1 notanumber OK\r\n\r\n",
		"HTTP/1.1 200 OK\r\nBadHeaderLine\r\n\r\n",
	}
	for _, raw := range tests {
		br := bufio.NewReader(strings.NewReader(raw))
		_, err := ReadResponseHead(br)
		assert.Error(t, err)
	}
}
