package conn

import "errors"

// Sentinel errors, in the donor's tcpcore/errors.go style: package-level
// vars wrapped with fmt.Errorf("%w: ...") at call sites.
var (
	ErrClosed      = errors.New("conn: closed")
	ErrInvalidCall = errors.New("conn: invalid call for current mode")
)

// TransportError wraps a codec-level failure mid-exchange (broken pipe,
// TLS error, protocol violation). The Worker holding the Conn is always
// evicted when this is returned from Request.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "conn: transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
