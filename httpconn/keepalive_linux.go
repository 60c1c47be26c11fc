package httpconn

import (
	"net"
	"syscall"
)

// setKeepaliveParameters tunes probe count and retry interval (seconds) on
// a freshly dialed TCP connection, beyond what SetKeepAlive alone offers.
func setKeepaliveParameters(conn *net.TCPConn, count, interval int) error {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	return rawConn.Control(func(fd uintptr) {
		syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, syscall.TCP_KEEPCNT, count)
		syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, syscall.TCP_KEEPINTVL, interval)
	})
}
