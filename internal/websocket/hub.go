// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"notesaas-service/internal/pkg/session"

	"go.uber.org/zap"
)

// Hub pushes session change events to every connected context of a subject,
// the way a storage-change notification reaches a user's other browser tabs.
// It is wired to the session store's observer hook.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	events     chan session.Event
}

// Message is the frame sent to clients on a session change.
type Message struct {
	Type    session.ChangeKind `json:"type"`
	Subject string             `json:"subject"`
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan session.Event, 256),
	}
}

// SessionChanged enqueues a session event for broadcast. Safe to call from
// the session store's synchronous observer: it never blocks.
func (h *Hub) SessionChanged(ev session.Event) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("session event dropped, hub backlog full",
			zap.String("subject", ev.Subject))
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case ev := <-h.events:
			h.broadcast(ev)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.subject] == nil {
		h.clients[c.subject] = make(map[*Client]bool)
	}
	h.clients[c.subject][c] = true
	h.logger.Info("ws client connected", zap.String("subject", c.subject))
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.subject]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
			if len(set) == 0 {
				delete(h.clients, c.subject)
			}
		}
	}
}

func (h *Hub) broadcast(ev session.Event) {
	data, err := json.Marshal(Message{Type: ev.Kind, Subject: ev.Subject})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[ev.Subject] {
		select {
		case c.send <- data:
		default: // slow client; drop the frame
		}
	}
}

// Stats reports connection counts for the platform admin console.
func (h *Hub) Stats() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int, len(h.clients))
	for subject, set := range h.clients {
		out[subject] = len(set)
	}
	return out
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			close(c.send)
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}
