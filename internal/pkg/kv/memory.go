// internal/pkg/kv/memory.go
package kv

import (
	"context"
	"sync"
)

// Memory is an in-process substrate shared by any number of handles. Each
// handle behaves like one browser context: writes through one handle are
// notified to every other handle's watchers, never back to the writer.
type Memory struct {
	mu      sync.RWMutex
	data    map[string]string
	handles map[*memoryHandle]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		data:    make(map[string]string),
		handles: make(map[*memoryHandle]struct{}),
	}
}

// Open returns a new handle onto the shared substrate.
func (m *Memory) Open() Store {
	h := &memoryHandle{mem: m}
	m.mu.Lock()
	m.handles[h] = struct{}{}
	m.mu.Unlock()
	return h
}

func (m *Memory) publish(from *memoryHandle, ev Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for h := range m.handles {
		if h == from {
			continue
		}
		h.notify(ev)
	}
}

type memoryHandle struct {
	mem *Memory

	mu       sync.Mutex
	watchers []chan Event
}

func (h *memoryHandle) Get(_ context.Context, key string) (string, error) {
	h.mem.mu.RLock()
	defer h.mem.mu.RUnlock()
	v, ok := h.mem.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (h *memoryHandle) Set(_ context.Context, key, value string) error {
	h.mem.mu.Lock()
	h.mem.data[key] = value
	h.mem.mu.Unlock()
	h.mem.publish(h, Event{Key: key, Value: value})
	return nil
}

func (h *memoryHandle) Delete(_ context.Context, key string) error {
	h.mem.mu.Lock()
	delete(h.mem.data, key)
	h.mem.mu.Unlock()
	h.mem.publish(h, Event{Key: key, Deleted: true})
	return nil
}

func (h *memoryHandle) Watch(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.watchers = append(h.watchers, ch)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		for i, w := range h.watchers {
			if w == ch {
				h.watchers = append(h.watchers[:i], h.watchers[i+1:]...)
				break
			}
		}
		h.mu.Unlock()
		close(ch)
	}()
	return ch
}

func (h *memoryHandle) notify(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.watchers {
		select {
		case w <- ev:
		default: // slow watcher; drop rather than block the writer
		}
	}
}

func (h *memoryHandle) Close() error {
	h.mem.mu.Lock()
	delete(h.mem.handles, h)
	h.mem.mu.Unlock()
	return nil
}
