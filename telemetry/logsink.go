package telemetry

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gofinch/connpool/internal/poollog"
)

// LogSink is the fallback sink a Pool uses when no caller-supplied Sink is
// attached: every event except the deprecated MaxIdleTimeExceededLegacy
// alias becomes a structured zerolog line at a level matching its severity.
type LogSink struct{}

func (LogSink) Emit(e Event) {
	switch ev := e.(type) {
	case QueueStart:
		log.Debug().Str("pool", ev.Pool).Str("event", ev.Name()).Msg("checkout started")
	case QueueStop:
		log.Debug().Str("pool", ev.Pool).Dur("idle_time", ev.IdleTime).Str("event", ev.Name()).Msg("checkout finished")
	case QueueException:
		log.Error().Str("pool", ev.Pool).Err(ev.Err).Str("event", ev.Name()).Msg("request driver exception")
	case ConnMaxIdleTimeExceeded:
		l := poollog.Origin(originString(ev.Scheme, ev.Host, ev.Port))
		l.Warn().Dur("idle_time", ev.IdleTime).Str("event", ev.Name()).Msg("connection idle time exceeded")
	case MaxIdleTimeExceededLegacy:
		// deprecated alias; no separate log line to avoid doubling noise
	case PoolMaxIdleTimeExceeded:
		l := poollog.Origin(originString(ev.Scheme, ev.Host, ev.Port))
		l.Warn().Str("event", ev.Name()).Msg("pool idle time exceeded, self-stopping")
	}
}

func originString(scheme, host string, port int) string {
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}
