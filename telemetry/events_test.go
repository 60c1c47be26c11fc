package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventNames(t *testing.T) {
	assert.Equal(t, "queue.start", QueueStart{}.Name())
	assert.Equal(t, "queue.stop", QueueStop{}.Name())
	assert.Equal(t, "queue.exception", QueueException{}.Name())
	assert.Equal(t, "conn_max_idle_time_exceeded", ConnMaxIdleTimeExceeded{}.Name())
	assert.Equal(t, "max_idle_time_exceeded", MaxIdleTimeExceededLegacy{}.Name())
	assert.Equal(t, "pool_max_idle_time_exceeded", PoolMaxIdleTimeExceeded{}.Name())
}

type spyCounter struct {
	count int
}

func (s *spyCounter) Emit(Event) { s.count++ }

func TestMultiSink_FansOutToEveryMember(t *testing.T) {
	a, b := &spyCounter{}, &spyCounter{}
	m := MultiSink{a, b}
	m.Emit(QueueStart{Pool: "p"})
	assert.Equal(t, 1, a.count)
	assert.Equal(t, 1, b.count)
}

func TestNopSink_DiscardsEverything(t *testing.T) {
	assert.NotPanics(t, func() {
		NopSink{}.Emit(QueueStart{Pool: "p"})
	})
}
