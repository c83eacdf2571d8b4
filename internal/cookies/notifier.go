package cookies

import (
	"sync"
)

// Notifier fans change events out to listeners from a single goroutine,
// so every listener sees events in exactly the order they were emitted.
type Notifier struct {
	mu     sync.RWMutex
	events chan ChangeEvent
	closed bool
	done   chan struct{}

	lmu       sync.RWMutex
	listeners []ChangeListener
}

// NewNotifier creates a notifier with the given queue size and starts its
// dispatch goroutine.
func NewNotifier(buffer int) *Notifier {
	if buffer < 1 {
		buffer = 256
	}
	n := &Notifier{
		events: make(chan ChangeEvent, buffer),
		done:   make(chan struct{}),
	}
	go n.dispatch()
	return n
}

// Subscribe adds a listener.
func (n *Notifier) Subscribe(l ChangeListener) {
	n.lmu.Lock()
	defer n.lmu.Unlock()
	n.listeners = append(n.listeners, l)
}

// Unsubscribe removes a listener. Unknown listeners are ignored.
func (n *Notifier) Unsubscribe(l ChangeListener) {
	n.lmu.Lock()
	defer n.lmu.Unlock()

	for i, existing := range n.listeners {
		if existing == l {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

// Emit queues an event for delivery. Events emitted after Close are dropped.
func (n *Notifier) Emit(ev ChangeEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}
	n.events <- ev
}

// Close stops accepting events and waits until the queued ones are delivered.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	close(n.events)
	n.mu.Unlock()

	<-n.done
}

func (n *Notifier) dispatch() {
	defer close(n.done)

	for ev := range n.events {
		n.lmu.RLock()
		listeners := make([]ChangeListener, len(n.listeners))
		copy(listeners, n.listeners)
		n.lmu.RUnlock()

		for _, l := range listeners {
			l.OnChange(ev)
		}
	}
}
