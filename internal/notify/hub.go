package notify

import (
	"log"
	"sync"

	"appliance-reserve-backend/internal/status"
)

// Hub is the push transport: a registry of observer channels that every
// change event is written to. An observer that cannot keep up (its buffer
// is full) is dropped and forgotten, which the subscriber sees as its
// channel closing.
type Hub struct {
	mu     sync.Mutex
	subs   map[int64]chan status.Event
	nextID int64
	buffer int
}

// NewHub creates a hub whose observers each get a buffer of the given
// size. A buffer of at least 1 keeps a briefly busy observer alive
// across a burst.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[int64]chan status.Event),
		buffer: buffer,
	}
}

// Subscribe registers a new observer. The returned cancel function
// unregisters it; the channel is closed when the observer is removed,
// whether by cancel or by falling behind.
func (h *Hub) Subscribe() (<-chan status.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan status.Event, h.buffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if ch, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish writes the event to every observer. A full channel means the
// observer is dead or too slow; it is dropped so the remaining observers
// are not held up.
func (h *Hub) Publish(ev status.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("notify: dropping observer %d (channel full)", id)
			delete(h.subs, id)
			close(ch)
		}
	}
}

// Observers returns the current observer count.
func (h *Hub) Observers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
