package notify

import (
	"context"
	"sync"
)

// SharedMedium abstracts a storage slot shared between execution contexts
// (tabs, processes). Writing a value is the broadcast signal: the medium's
// own change notification fans the write out to subscribers. The writer
// retracts the value immediately after, so the slot is a signal, not a
// queue, and concurrent broadcasts do not pile up in it.
type SharedMedium interface {
	Write(ctx context.Context, key string, value []byte) error
	Erase(ctx context.Context, key string) error
	// Subscribe invokes fn for every value written to the medium by any
	// context, including this one; self-echo suppression is SyncGuard's
	// job. The returned function cancels the subscription.
	Subscribe(ctx context.Context, fn func(value []byte)) (func(), error)
}

// MemoryMedium is an in-process SharedMedium for tests and the
// single-process deployment. Change callbacks fire synchronously on Write.
type MemoryMedium struct {
	mu        sync.Mutex
	values    map[string][]byte
	listeners map[int64]func([]byte)
	nextID    int64
}

// NewMemoryMedium creates an empty in-process medium.
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{
		values:    make(map[string][]byte),
		listeners: make(map[int64]func([]byte)),
	}
}

func (m *MemoryMedium) Write(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.values[key] = append([]byte(nil), value...)
	fns := make([]func([]byte), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
	return nil
}

func (m *MemoryMedium) Erase(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryMedium) Subscribe(ctx context.Context, fn func(value []byte)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}, nil
}

// Peek returns the value currently stored under key, for tests asserting
// the retract-after-write behavior.
func (m *MemoryMedium) Peek(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}
