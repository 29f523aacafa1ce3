package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"notesaas-service/internal/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(h *Hub, subject string) *Client {
	return &Client{
		hub:     h,
		subject: subject,
		send:    make(chan []byte, 16),
		logger:  zap.NewNop(),
	}
}

func TestHub_BroadcastToSubjectClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(zap.NewNop())
	go h.Run(ctx)

	tabA := newTestClient(h, "user-1")
	tabB := newTestClient(h, "user-1")
	other := newTestClient(h, "user-2")
	h.register <- tabA
	h.register <- tabB
	h.register <- other

	require.Eventually(t, func() bool {
		return h.Stats()["user-1"] == 2
	}, time.Second, 10*time.Millisecond)

	h.SessionChanged(session.Event{Subject: "user-1", Kind: session.ChangeCleared})

	for _, c := range []*Client{tabA, tabB} {
		select {
		case data := <-c.send:
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			assert.Equal(t, session.ChangeCleared, msg.Type)
			assert.Equal(t, "user-1", msg.Subject)
		case <-time.After(time.Second):
			t.Fatal("expected a frame for user-1")
		}
	}

	select {
	case <-other.send:
		t.Fatal("user-2 must not receive user-1 events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(zap.NewNop())
	go h.Run(ctx)

	c := newTestClient(h, "user-1")
	h.register <- c
	require.Eventually(t, func() bool {
		return h.Stats()["user-1"] == 1
	}, time.Second, 10*time.Millisecond)

	h.unregister <- c
	require.Eventually(t, func() bool {
		return len(h.Stats()) == 0
	}, time.Second, 10*time.Millisecond)

	_, open := <-c.send
	assert.False(t, open)
}

func TestHub_SessionChangedNeverBlocks(t *testing.T) {
	h := NewHub(zap.NewNop())
	// No Run loop draining; fill past the buffer without deadlocking.
	for i := 0; i < 1000; i++ {
		h.SessionChanged(session.Event{Subject: "user-1", Kind: session.ChangeUpdated})
	}
}
