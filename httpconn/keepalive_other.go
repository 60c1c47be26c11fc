//go:build !linux

package httpconn

import "net"

// setKeepaliveParameters is a no-op outside Linux; SetKeepAlive(true) in
// Connect still enables OS-default keepalive.
func setKeepaliveParameters(conn *net.TCPConn, count, interval int) error {
	return nil
}
