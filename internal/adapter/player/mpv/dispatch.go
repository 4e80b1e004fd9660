package mpv

import (
	"sync"

	"github.com/flightmansam/feishin/internal/ports"
)

// dispatcher delivers statuses in order on its own goroutine. The queue is
// unbounded so the IPC reader never blocks on a slow handler.
type dispatcher struct {
	deliver func(ports.PlayerStatus)

	mu      sync.Mutex
	queue   []ports.PlayerStatus
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

func newDispatcher(deliver func(ports.PlayerStatus)) *dispatcher {
	d := &dispatcher{
		deliver: deliver,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) push(status ports.PlayerStatus) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, status)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// close delivers what is queued, then stops the goroutine. It does not wait,
// so it may be called from a handler.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.stopped)
	for range d.wake {
		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				closed := d.closed
				d.mu.Unlock()
				if closed {
					return
				}
				break
			}
			status := d.queue[0]
			d.queue = d.queue[1:]
			d.mu.Unlock()

			d.deliver(status)
		}
	}
}
