package session

import "sync"

// Broadcaster fans session changes out to subscribers. Delivery is synchronous and
// in subscription order; Notify must not be called from inside a listener.
type Broadcaster struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
	order     []int
}

// Subscribe implements Notifier.
func (b *Broadcaster) Subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[int]Listener)
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Notify delivers s to every current subscriber.
func (b *Broadcaster) Notify(s *Session) {
	b.mu.Lock()
	targets := make([]Listener, 0, len(b.order))
	for _, id := range b.order {
		targets = append(targets, b.listeners[id])
	}
	b.mu.Unlock()

	for _, l := range targets {
		l(s.clone())
	}
}
