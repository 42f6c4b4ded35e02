package trayapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventsKeepOrderWithSlowConsumer(t *testing.T) {
	ev := newEvents()

	// The consumer does not run until every record is queued, so the producer
	// side must absorb the whole burst without blocking.
	const n = 10000
	for i := 0; i < n; i++ {
		ev.in <- Event{ID: MenuID(i)}
	}
	close(ev.in)

	for i := 0; i < n; i++ {
		e, err := ev.recv()
		require.NoError(t, err)
		require.Equal(t, MenuID(i), e.ID)
	}

	_, err := ev.recv()
	require.ErrorIs(t, err, ErrDisconnected)
}

func TestEventsRecvBlocksUntilSend(t *testing.T) {
	ev := newEvents()

	go func() {
		time.Sleep(20 * time.Millisecond)
		ev.in <- Event{ID: 7}
	}()

	e, err := ev.recv()
	require.NoError(t, err)
	require.Equal(t, MenuID(7), e.ID)
}

func TestEventsRecvTimeout(t *testing.T) {
	ev := newEvents()

	start := time.Now()
	_, err := ev.recvTimeout(30 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestEventsRecvTimeoutDeliversQueued(t *testing.T) {
	ev := newEvents()
	ev.in <- Event{ID: 3}

	e, err := ev.recvTimeout(time.Second)
	require.NoError(t, err)
	require.Equal(t, MenuID(3), e.ID)
}

func TestEventsRecvTimeoutAfterClose(t *testing.T) {
	ev := newEvents()
	ev.in <- Event{ID: 1}
	close(ev.in)

	e, err := ev.recvTimeout(time.Second)
	require.NoError(t, err)
	require.Equal(t, MenuID(1), e.ID)

	_, err = ev.recvTimeout(time.Second)
	require.ErrorIs(t, err, ErrDisconnected)
}
