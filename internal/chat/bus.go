// Package chat implements the conversation orchestration layer: the
// conversation registry, the subscription bus for observers, and the
// orchestrator that owns every mutation of conversation state.
package chat

import "sync"

// Listener is invoked after every successful mutation of observable state.
// Listeners re-read state through DisplayMessages; they never receive or hold
// a reference into the store. A listener must not mutate conversation state
// from within the callback.
type Listener func()

// Bus notifies registered observers of state changes. Delivery is
// synchronous and in registration order.
type Bus struct {
	mu        sync.Mutex
	nextID    int
	order     []int
	listeners map[int]Listener
}

// NewBus creates an empty subscription bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[int]Listener)}
}

// Subscribe registers a listener and returns its unsubscribe function.
// Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.order = append(b.order, id)
	b.listeners[id] = l

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Notify delivers the change signal to every live listener, in the order
// they subscribed. The listener set is snapshotted first so a listener may
// subscribe or unsubscribe from within its callback without deadlocking.
func (b *Bus) Notify() {
	b.mu.Lock()
	active := make([]Listener, 0, len(b.listeners))
	for _, id := range b.order {
		if l, ok := b.listeners[id]; ok {
			active = append(active, l)
		}
	}
	b.mu.Unlock()

	for _, l := range active {
		l()
	}
}
