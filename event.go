package trayapp

import "time"

// Event is a single menu activation. The platform window publishes one Event
// for every activated menu entry, carrying the [MenuID] the entry was created
// with.
type Event struct {
	ID MenuID
}

// events connects the platform window's native loop to the Application pump.
//
// It behaves like an unbounded FIFO: the producer side (in) never blocks on a
// slow consumer, because a pump goroutine moves records into a backlog and
// feeds the consumer side (out) from there. Closing in makes the pump flush
// the backlog and then close out, so the consumer drains everything that was
// sent before observing the disconnect.
type events struct {
	in  chan Event
	out chan Event
}

func newEvents() *events {
	ev := &events{
		in:  make(chan Event, 64),
		out: make(chan Event),
	}

	go ev.pump()

	return ev
}

// pump shuttles records from in to out in arrival order.
func (ev *events) pump() {
	defer close(ev.out)

	var backlog []Event

	for {
		var (
			out  chan Event
			next Event
		)

		// A nil channel makes the send case block forever, which disables it
		// while the backlog is empty.
		if len(backlog) > 0 {
			out = ev.out
			next = backlog[0]
		}

		select {
		case e, ok := <-ev.in:
			if !ok {
				for _, e := range backlog {
					ev.out <- e
				}
				return
			}
			backlog = append(backlog, e)
		case out <- next:
			backlog = backlog[1:]
		}
	}
}

// recv blocks until the next record arrives or the producer is gone.
func (ev *events) recv() (Event, error) {
	e, ok := <-ev.out
	if !ok {
		return Event{}, ErrDisconnected
	}

	return e, nil
}

// recvTimeout blocks like [events.recv], but gives up after d.
func (ev *events) recvTimeout(d time.Duration) (Event, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case e, ok := <-ev.out:
		if !ok {
			return Event{}, ErrDisconnected
		}
		return e, nil
	case <-timer.C:
		return Event{}, ErrTimeout
	}
}
