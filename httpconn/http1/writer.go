// Package http1 is a minimal HTTP/1.1 client-side wire codec: request
// line/header writing and status-line/header/body reading, adapted from a
// server-side codec into the client direction this pool needs.
package http1

import (
	"bufio"
	"fmt"
	"net/http"
)

// WriteRequest writes the request line and headers for req, adding Host
// and Connection automatically. It does not write a body; callers write
// req.Body themselves via bw so this stays reusable for chunked bodies.
func WriteRequest(bw *bufio.Writer, method, path, host string, hdr http.Header, bodyLen int, keepAlive bool) error {
	if method == "" {
		method = http.MethodGet
	}
	if path == "" {
		path = "/"
	}
	if _, err := fmt.Fprintf(bw, "%s %s HTTP/1.1\r\n", method, path); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "Host: %s\r\n", host); err != nil {
		return err
	}
	for k, vv := range hdr {
		for _, v := range vv {
			if _, err := fmt.Fprintf(bw, "%s: %s\r\n", k, sanitizeHeaderValue(v)); err != nil {
				return err
			}
		}
	}
	if bodyLen > 0 && hdr.Get("Content-Length") == "" {
		if _, err := fmt.Fprintf(bw, "Content-Length: %d\r\n", bodyLen); err != nil {
			return err
		}
	}
	if keepAlive {
		if _, err := fmt.Fprint(bw, "Connection: keep-alive\r\n"); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprint(bw, "Connection: close\r\n"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(bw, "\r\n")
	return err
}

func sanitizeHeaderValue(v string) string {
	out := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		if v[i] == '\r' || v[i] == '\n' {
			continue
		}
		out = append(out, v[i])
	}
	return string(out)
}
