package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tenantdom "notesaas-service/internal/domain/tenant"
	"notesaas-service/internal/pkg/kv"
	"notesaas-service/internal/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T, h kv.Store) *Store {
	t.Helper()
	return NewStore(h, token.NewCodec("notes-app"), zap.NewNop())
}

func issue(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()
	raw, _, err := token.NewCodec("notes-app").Issue(subject, token.Claims{
		Email:       subject + "@example.test",
		Role:        token.RoleMember,
		TenantID:    "acme",
		Permissions: []string{token.PermNotesRead},
	}, ttl)
	require.NoError(t, err)
	return raw
}

func TestStore_SetTokenAndClaims(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, kv.NewMemory().Open())

	raw := issue(t, "user-1", time.Hour)
	require.NoError(t, store.SetToken(ctx, "user-1", raw))

	claims := store.Claims(ctx, "user-1")
	require.NotNil(t, claims)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, raw, store.Token(ctx, "user-1"))

	// Another subject is untouched.
	assert.Nil(t, store.Claims(ctx, "user-2"))
}

func TestStore_EmptyTokenClears(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	store := newTestStore(t, mem.Open())

	require.NoError(t, store.SetToken(ctx, "user-1", issue(t, "user-1", time.Hour)))
	require.NoError(t, store.SetTenant(ctx, "user-1", &tenantdom.Tenant{ID: "acme"}))

	require.NoError(t, store.SetToken(ctx, "user-1", ""))
	assert.Nil(t, store.Claims(ctx, "user-1"))
	assert.Empty(t, store.Token(ctx, "user-1"))
	assert.Nil(t, store.Tenant(ctx, "user-1"))

	// The persisted keys are gone as well.
	other := mem.Open()
	_, err := other.Get(ctx, "session:user-1:token")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
	_, err = other.Get(ctx, "session:user-1:tenant")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestStore_MalformedTokenFailsSoft(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, kv.NewMemory().Open())

	require.NoError(t, store.SetToken(ctx, "user-1", "definitely-not-a-token"))

	// The raw value sticks around but the subject stays logged out.
	assert.Equal(t, "definitely-not-a-token", store.Token(ctx, "user-1"))
	assert.Nil(t, store.Claims(ctx, "user-1"))
}

func TestStore_ExpiredTokenLogsOut(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, kv.NewMemory().Open())

	require.NoError(t, store.SetToken(ctx, "user-1", issue(t, "user-1", -time.Minute)))
	assert.Nil(t, store.Claims(ctx, "user-1"))
}

func TestStore_ExpiryDetectedOnRead(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	store := newTestStore(t, mem.Open())

	require.NoError(t, store.SetToken(ctx, "user-1", issue(t, "user-1", time.Hour)))
	require.NotNil(t, store.Claims(ctx, "user-1"))

	// Jump the clock past the expiry; the next read clears the session.
	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Nil(t, store.Claims(ctx, "user-1"))

	other := mem.Open()
	_, err := other.Get(ctx, "session:user-1:token")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestStore_TenantSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, kv.NewMemory().Open())

	ten := &tenantdom.Tenant{
		ID:   "acme",
		Name: "Acme Corporation",
		Plan: "FREE",
		Features: tenantdom.FeatureSet{
			"maxNotes":      tenantdom.FeatureLimit(3),
			"collaboration": tenantdom.FeatureBool(false),
		},
	}
	require.NoError(t, store.SetTenant(ctx, "user-1", ten))

	got := store.Tenant(ctx, "user-1")
	require.NotNil(t, got)
	assert.Equal(t, "Acme Corporation", got.Name)
}

func TestStore_RestartRecoversFromKV(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()

	first := newTestStore(t, mem.Open())
	raw := issue(t, "user-1", time.Hour)
	require.NoError(t, first.SetToken(ctx, "user-1", raw))
	require.NoError(t, first.SetTenant(ctx, "user-1", &tenantdom.Tenant{ID: "acme", Name: "Acme Corporation"}))

	// A fresh store over the same substrate lazily loads the session back.
	second := newTestStore(t, mem.Open())
	claims := second.Claims(ctx, "user-1")
	require.NotNil(t, claims)
	assert.Equal(t, "user-1", claims.Subject)
	require.NotNil(t, second.Tenant(ctx, "user-1"))
}

func TestStore_CrossContextSync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mem := kv.NewMemory()

	local := newTestStore(t, mem.Open())
	remote := newTestStore(t, mem.Open())
	go remote.Run(ctx)

	// Give the watcher a moment to register.
	time.Sleep(20 * time.Millisecond)

	raw := issue(t, "user-1", time.Hour)
	require.NoError(t, local.SetToken(ctx, "user-1", raw))

	require.Eventually(t, func() bool {
		return remote.Claims(ctx, "user-1") != nil
	}, time.Second, 10*time.Millisecond, "login should propagate to the other context")

	require.NoError(t, local.Clear(ctx, "user-1"))
	require.Eventually(t, func() bool {
		remote.mu.RLock()
		_, ok := remote.sessions["user-1"]
		remote.mu.RUnlock()
		return !ok
	}, time.Second, 10*time.Millisecond, "logout should propagate to the other context")
}

func TestStore_OwnWritesDoNotEcho(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mem := kv.NewMemory()

	store := newTestStore(t, mem.Open())
	go store.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	var updates int32
	store.Notify(func(ev Event) {
		if ev.Kind == ChangeUpdated {
			atomic.AddInt32(&updates, 1)
		}
	})

	require.NoError(t, store.SetToken(ctx, "user-1", issue(t, "user-1", time.Hour)))

	// Only SetToken's own emit fires; the watch loop never sees the write.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&updates))
}

func TestStore_DeadTokenFromWatchClears(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mem := kv.NewMemory()

	store := newTestStore(t, mem.Open())
	go store.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	var mu sync.Mutex
	var kinds []ChangeKind
	store.Notify(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})

	// Another context writes a token that is already expired, then one that
	// does not decode at all. Neither is a live session, so observers hear a
	// clear both times and never an update.
	other := mem.Open()
	require.NoError(t, other.Set(ctx, "session:user-1:token", issue(t, "user-1", -time.Minute)))
	require.NoError(t, other.Set(ctx, "session:user-1:token", "definitely-not-a-token"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(kinds) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []ChangeKind{ChangeCleared, ChangeCleared}, kinds)
	assert.Nil(t, store.Claims(ctx, "user-1"))
}

func TestStore_ObserverEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, kv.NewMemory().Open())

	var events []Event
	store.Notify(func(ev Event) { events = append(events, ev) })

	require.NoError(t, store.SetToken(ctx, "user-1", issue(t, "user-1", time.Hour)))
	require.NoError(t, store.SetTenant(ctx, "user-1", &tenantdom.Tenant{ID: "acme"}))
	require.NoError(t, store.Clear(ctx, "user-1"))

	require.Len(t, events, 3)
	assert.Equal(t, Event{Subject: "user-1", Kind: ChangeUpdated}, events[0])
	assert.Equal(t, Event{Subject: "user-1", Kind: ChangeTenantUpdated}, events[1])
	assert.Equal(t, Event{Subject: "user-1", Kind: ChangeCleared}, events[2])
}

func TestParseKey(t *testing.T) {
	subject, suffix, ok := parseKey("session:user-1:token")
	require.True(t, ok)
	assert.Equal(t, "user-1", subject)
	assert.Equal(t, ":token", suffix)

	subject, suffix, ok = parseKey("session:user-1:tenant")
	require.True(t, ok)
	assert.Equal(t, "user-1", subject)
	assert.Equal(t, ":tenant", suffix)

	_, _, ok = parseKey("unrelated:key")
	assert.False(t, ok)
}
