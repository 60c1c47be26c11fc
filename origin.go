package connpool

import (
	"fmt"
	"strconv"
	"strings"
)

// Origin is the immutable identity of a pool: the (scheme, host, port)
// triple every Worker in that pool dials.
type Origin struct {
	Scheme string // "http" or "https"
	Host   string
	Port   int
}

// String renders the origin the way it is registered in the metrics
// directory and reported in telemetry metadata: scheme://host:port.
func (o Origin) String() string {
	return fmt.Sprintf("%s://%s:%d", o.Scheme, o.Host, o.Port)
}

// Address is the dial target, host:port, without the scheme.
func (o Origin) Address() string {
	return o.Host + ":" + strconv.Itoa(o.Port)
}

// ParseOrigin splits a scheme://host:port string into an Origin. Port
// defaults to 80 for http and 443 for https when omitted.
func ParseOrigin(s string) (Origin, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return Origin{}, fmt.Errorf("connpool: origin %q missing scheme", s)
	}
	scheme = strings.ToLower(scheme)
	if scheme != "http" && scheme != "https" {
		return Origin{}, fmt.Errorf("connpool: origin %q has unsupported scheme %q", s, scheme)
	}
	host, portStr, hasPort := strings.Cut(rest, ":")
	if host == "" {
		return Origin{}, fmt.Errorf("connpool: origin %q missing host", s)
	}
	port := 80
	if scheme == "https" {
		port = 443
	}
	if hasPort {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return Origin{}, fmt.Errorf("connpool: origin %q has invalid port: %w", s, err)
		}
		port = p
	}
	return Origin{Scheme: scheme, Host: host, Port: port}, nil
}
