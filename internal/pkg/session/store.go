// internal/pkg/session/store.go
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	tenantdom "notesaas-service/internal/domain/tenant"
	"notesaas-service/internal/pkg/kv"
	"notesaas-service/internal/pkg/token"

	"go.uber.org/zap"
)

// ChangeKind classifies a session state transition.
type ChangeKind string

const (
	ChangeUpdated       ChangeKind = "session.updated"
	ChangeCleared       ChangeKind = "session.cleared"
	ChangeTenantUpdated ChangeKind = "session.tenant_updated"
)

// Event notifies observers (the websocket hub) of a session change.
type Event struct {
	Subject string
	Kind    ChangeKind
}

const (
	keyPrefix       = "session:"
	tokenKeySuffix  = ":token"
	tenantKeySuffix = ":tenant"
)

type state struct {
	raw    string
	claims *token.Claims
	tenant *tenantdom.Tenant
}

// Store holds each subject's current token, derived claims and tenant
// snapshot. Both values are persisted under fixed keys in the shared KV
// store; externally-originated mutations observed via Watch are reconciled
// into memory without re-persisting, so writes never feed back.
//
// Decode failures are fail-soft: the store logs and surfaces an
// absent-claims state instead of raising. Expired claims transition the
// subject to logged out as if the token had been cleared.
type Store struct {
	kv     kv.Store
	codec  *token.Codec
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*state

	subMu     sync.RWMutex
	observers []func(Event)
}

func NewStore(store kv.Store, codec *token.Codec, logger *zap.Logger) *Store {
	return &Store{
		kv:       store,
		codec:    codec,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*state),
	}
}

// Notify registers an observer for session change events. Observers are
// called synchronously; they must not block.
func (s *Store) Notify(fn func(Event)) {
	s.subMu.Lock()
	s.observers = append(s.observers, fn)
	s.subMu.Unlock()
}

func (s *Store) emit(ev Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, fn := range s.observers {
		fn(ev)
	}
}

// Run reconciles externally-originated KV mutations (another instance
// logging a subject in or out) until ctx is done.
func (s *Store) Run(ctx context.Context) {
	for ev := range s.kv.Watch(ctx) {
		subject, suffix, ok := parseKey(ev.Key)
		if !ok {
			continue
		}
		switch suffix {
		case tokenKeySuffix:
			if ev.Deleted {
				s.dropLocal(subject)
				s.emit(Event{Subject: subject, Kind: ChangeCleared})
				continue
			}
			// An expired or undecodable token logs the subject out, so
			// observers hear a clear, not an update.
			st := s.applyToken(subject, ev.Value)
			if st == nil || st.claims == nil {
				s.emit(Event{Subject: subject, Kind: ChangeCleared})
				continue
			}
			s.emit(Event{Subject: subject, Kind: ChangeUpdated})
		case tenantKeySuffix:
			if ev.Deleted {
				continue // cleared together with the token key
			}
			var t tenantdom.Tenant
			if err := json.Unmarshal([]byte(ev.Value), &t); err != nil {
				s.logger.Warn("discarding unreadable tenant snapshot",
					zap.String("subject", subject), zap.Error(err))
				continue
			}
			s.mu.Lock()
			if st, ok := s.sessions[subject]; ok {
				st.tenant = &t
			} else {
				s.sessions[subject] = &state{tenant: &t}
			}
			s.mu.Unlock()
			s.emit(Event{Subject: subject, Kind: ChangeTenantUpdated})
		}
	}
}

// SetToken stores a subject's raw token and derives its claims. An empty
// token clears the session, the persisted token and the persisted tenant
// snapshot. A token that fails to decode is kept raw with absent claims.
func (s *Store) SetToken(ctx context.Context, subject, raw string) error {
	if raw == "" {
		return s.Clear(ctx, subject)
	}
	if err := s.kv.Set(ctx, tokenKey(subject), raw); err != nil {
		return err
	}
	st := s.applyToken(subject, raw)
	if st == nil {
		// Already expired: treat the set as a clear.
		return s.Clear(ctx, subject)
	}
	s.emit(Event{Subject: subject, Kind: ChangeUpdated})
	return nil
}

// applyToken updates in-memory state from a raw token without persisting.
func (s *Store) applyToken(subject, raw string) *state {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		// Fail-soft: keep the raw value, surface absent claims.
		s.logger.Warn("token decode failed, treating session as logged out",
			zap.String("subject", subject), zap.Error(err))
		claims = nil
	}
	if claims != nil && claims.Expired(s.now()) {
		s.dropLocal(subject)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[subject]
	if !ok {
		st = &state{}
		s.sessions[subject] = st
	}
	st.raw = raw
	st.claims = claims
	return st
}

// Clear logs the subject out: in-memory state, persisted token and persisted
// tenant snapshot are all removed.
func (s *Store) Clear(ctx context.Context, subject string) error {
	s.dropLocal(subject)
	if err := s.kv.Delete(ctx, tokenKey(subject)); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, tenantKey(subject)); err != nil {
		return err
	}
	s.emit(Event{Subject: subject, Kind: ChangeCleared})
	return nil
}

func (s *Store) dropLocal(subject string) {
	s.mu.Lock()
	delete(s.sessions, subject)
	s.mu.Unlock()
}

// Claims returns the subject's derived claims, or nil when logged out. An
// expiry detected here transitions the subject to logged out before
// returning.
func (s *Store) Claims(ctx context.Context, subject string) *token.Claims {
	st := s.load(ctx, subject)
	if st == nil || st.claims == nil {
		return nil
	}
	if st.claims.Expired(s.now()) {
		if err := s.Clear(ctx, subject); err != nil {
			s.logger.Warn("failed to clear expired session",
				zap.String("subject", subject), zap.Error(err))
		}
		return nil
	}
	return st.claims
}

// Token returns the subject's raw token, or empty when absent.
func (s *Store) Token(ctx context.Context, subject string) string {
	st := s.load(ctx, subject)
	if st == nil {
		return ""
	}
	return st.raw
}

// SetTenant persists the subject's tenant snapshot alongside the session.
func (s *Store) SetTenant(ctx context.Context, subject string, t *tenantdom.Tenant) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, tenantKey(subject), string(data)); err != nil {
		return err
	}
	s.mu.Lock()
	st, ok := s.sessions[subject]
	if !ok {
		st = &state{}
		s.sessions[subject] = st
	}
	st.tenant = t
	s.mu.Unlock()
	s.emit(Event{Subject: subject, Kind: ChangeTenantUpdated})
	return nil
}

// Tenant returns the subject's cached tenant snapshot, or nil.
func (s *Store) Tenant(ctx context.Context, subject string) *tenantdom.Tenant {
	st := s.load(ctx, subject)
	if st == nil {
		return nil
	}
	return st.tenant
}

// load returns in-memory state, falling back to the persisted keys so a
// restarted instance picks sessions back up from a durable backend.
func (s *Store) load(ctx context.Context, subject string) *state {
	s.mu.RLock()
	st, ok := s.sessions[subject]
	s.mu.RUnlock()
	if ok {
		return st
	}

	raw, err := s.kv.Get(ctx, tokenKey(subject))
	if err != nil {
		return nil
	}
	st = s.applyToken(subject, raw)
	if st == nil {
		return nil
	}
	if data, err := s.kv.Get(ctx, tenantKey(subject)); err == nil {
		var t tenantdom.Tenant
		if err := json.Unmarshal([]byte(data), &t); err == nil {
			s.mu.Lock()
			st.tenant = &t
			s.mu.Unlock()
		}
	}
	return st
}

func tokenKey(subject string) string {
	return keyPrefix + subject + tokenKeySuffix
}

func tenantKey(subject string) string {
	return keyPrefix + subject + tenantKeySuffix
}

func parseKey(key string) (subject, suffix string, ok bool) {
	if !strings.HasPrefix(key, keyPrefix) {
		return "", "", false
	}
	rest := key[len(keyPrefix):]
	switch {
	case strings.HasSuffix(rest, tokenKeySuffix):
		return strings.TrimSuffix(rest, tokenKeySuffix), tokenKeySuffix, true
	case strings.HasSuffix(rest, tenantKeySuffix):
		return strings.TrimSuffix(rest, tenantKeySuffix), tenantKeySuffix, true
	}
	return "", "", false
}
