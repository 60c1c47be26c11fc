package poolcfg

import (
	"context"

	"github.com/gofinch/connpool/conn"
	"github.com/gofinch/connpool/httpconn"
	"github.com/gofinch/connpool/pool"
)

// Build turns a validated Config into a pool.Config wired to the concrete
// httpconn.Conn codec: each Worker dials with the origin's address, Host
// header, and keepalive tuning this Config carries.
func (c *Config) Build() (pool.Config, error) {
	origin, err := c.ParsedOrigin()
	if err != nil {
		return pool.Config{}, err
	}
	connMaxIdle := c.ParsedConnMaxIdleTime()

	dial := func(ctx context.Context) (conn.Conn, error) {
		return httpconn.New(httpconn.Config{
			Addr:           origin.Address(),
			Host:           origin.Host,
			MaxIdleTime:    connMaxIdle,
			KeepaliveCount: c.KeepaliveCount,
			KeepaliveIntvl: c.KeepaliveInterval,
		}), nil
	}

	return pool.Config{
		Name:            c.Name,
		Origin:          origin,
		PoolIdx:         c.PoolIdx,
		Size:            c.PoolSize,
		Dial:            dial,
		ConnMaxIdleTime: connMaxIdle,
		PoolMaxIdleTime: c.ParsedPoolMaxIdleTime(),
		StartMetrics:    c.StartPoolMetrics,
	}, nil
}
