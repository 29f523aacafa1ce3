// internal/service/note/notes.go
package note

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	notedom "notesaas-service/internal/domain/note"
	xerrors "notesaas-service/internal/pkg/errors"
	"notesaas-service/internal/pkg/token"
	"notesaas-service/internal/service/authz"
	tenantsvc "notesaas-service/internal/service/tenant"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// NotesService keeps each tenant's notes in memory. Creation claims maxNotes
// headroom atomically on the resolver; tenant usage counters track the live
// note count so quota headroom stays accurate. Reads and writes hand out
// copies, never pointers into the store.
type NotesService struct {
	facade   *authz.Facade
	resolver *tenantsvc.Resolver
	logger   *zap.Logger

	mu       sync.RWMutex
	byTenant map[string][]*notedom.Note
}

func NewNotesService(facade *authz.Facade, resolver *tenantsvc.Resolver, logger *zap.Logger) *NotesService {
	return &NotesService{
		facade:   facade,
		resolver: resolver,
		logger:   logger,
		byTenant: make(map[string][]*notedom.Note),
	}
}

// Create adds a note for the caller's active tenant. Headroom is claimed
// atomically on the resolver, so concurrent creates cannot overshoot the
// plan's maxNotes quota; exhausted headroom fails with ErrQuotaExceeded.
func (s *NotesService) Create(ctx context.Context, subject string, draft *notedom.Draft) (*notedom.Note, error) {
	view := s.facade.View(ctx, subject)
	claims := view.Claims()
	if claims == nil {
		return nil, xerrors.ErrUnauthorized
	}
	if !view.HasPermission(token.PermNotesWrite) {
		return nil, xerrors.Wrap(xerrors.ErrPermissionDenied, token.PermNotesWrite)
	}
	tenantID := activeTenantID(view)
	if err := s.resolver.Reserve(tenantID, tenantsvc.FeatureMaxNotes); err != nil {
		return nil, err
	}

	now := time.Now()
	n := &notedom.Note{
		ID:         ulid.Make().String(),
		TenantID:   tenantID,
		AuthorID:   claims.Subject,
		AuthorName: claims.Email,
		Title:      draft.Title,
		Body:       draft.Body,
		Category:   draft.Category,
		Tags:       append([]string(nil), draft.Tags...),
		Pinned:     draft.Pinned,
		Color:      draft.Color,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	s.byTenant[tenantID] = append([]*notedom.Note{n}, s.byTenant[tenantID]...)
	s.mu.Unlock()

	s.logger.Info("note created",
		zap.String("note_id", n.ID), zap.String("tenant_id", tenantID))
	return n.Clone(), nil
}

// Update merges patch fields into an existing note and refreshes its
// updated timestamp. A missing id is an explicit ErrNotFound.
func (s *NotesService) Update(ctx context.Context, subject, id string, patch *notedom.Patch) (*notedom.Note, error) {
	view := s.facade.View(ctx, subject)
	claims := view.Claims()
	if claims == nil {
		return nil, xerrors.ErrUnauthorized
	}
	if !view.HasPermission(token.PermNotesWrite) {
		return nil, xerrors.Wrap(xerrors.ErrPermissionDenied, token.PermNotesWrite)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.find(activeTenantID(view), id)
	if n == nil {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "note "+id)
	}
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Body != nil {
		n.Body = *patch.Body
	}
	if patch.Category != nil {
		n.Category = *patch.Category
	}
	if patch.Tags != nil {
		n.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if patch.Color != nil {
		n.Color = *patch.Color
	}
	if patch.Pinned != nil {
		n.Pinned = *patch.Pinned
	}
	n.UpdatedAt = time.Now()
	return n.Clone(), nil
}

// Delete removes a note; absent ids are a no-op.
func (s *NotesService) Delete(ctx context.Context, subject, id string) error {
	view := s.facade.View(ctx, subject)
	claims := view.Claims()
	if claims == nil {
		return xerrors.ErrUnauthorized
	}
	if !view.HasPermission(token.PermNotesDelete) {
		return xerrors.Wrap(xerrors.ErrPermissionDenied, token.PermNotesDelete)
	}

	tenantID := activeTenantID(view)
	s.mu.Lock()
	notes := s.byTenant[tenantID]
	removed := false
	for i, n := range notes {
		if n.ID == id {
			s.byTenant[tenantID] = append(notes[:i], notes[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if removed {
		s.resolver.AddUsage(tenantID, tenantsvc.FeatureMaxNotes, -1)
		s.logger.Info("note deleted",
			zap.String("note_id", id), zap.String("tenant_id", tenantID))
	}
	return nil
}

// TogglePin flips a note's pinned flag; absent ids are a no-op and return
// nil without error.
func (s *NotesService) TogglePin(ctx context.Context, subject, id string) (*notedom.Note, error) {
	view := s.facade.View(ctx, subject)
	claims := view.Claims()
	if claims == nil {
		return nil, xerrors.ErrUnauthorized
	}
	if !view.HasPermission(token.PermNotesWrite) {
		return nil, xerrors.Wrap(xerrors.ErrPermissionDenied, token.PermNotesWrite)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.find(activeTenantID(view), id)
	if n == nil {
		return nil, nil
	}
	n.Pinned = !n.Pinned
	n.UpdatedAt = time.Now()
	return n.Clone(), nil
}

// Get returns one note by id, or ErrNotFound.
func (s *NotesService) Get(ctx context.Context, subject, id string) (*notedom.Note, error) {
	view := s.facade.View(ctx, subject)
	claims := view.Claims()
	if claims == nil {
		return nil, xerrors.ErrUnauthorized
	}
	if !view.HasPermission(token.PermNotesRead) {
		return nil, xerrors.Wrap(xerrors.ErrPermissionDenied, token.PermNotesRead)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.find(activeTenantID(view), id)
	if n == nil {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "note "+id)
	}
	return n.Clone(), nil
}

// List projects the caller's tenant collection through search, category
// filter and sort. Pinned notes always order before unpinned ones; ties
// within the same pinned state break by the chosen key.
func (s *NotesService) List(ctx context.Context, subject string, q *notedom.ListQuery) ([]*notedom.Note, error) {
	view := s.facade.View(ctx, subject)
	claims := view.Claims()
	if claims == nil {
		return nil, xerrors.ErrUnauthorized
	}
	if !view.HasPermission(token.PermNotesRead) {
		return nil, xerrors.Wrap(xerrors.ErrPermissionDenied, token.PermNotesRead)
	}

	s.mu.RLock()
	src := s.byTenant[activeTenantID(view)]
	out := make([]*notedom.Note, 0, len(src))
	for _, n := range src {
		if q.Search != "" && !matches(n, q.Search) {
			continue
		}
		if q.Category != "" && n.Category != q.Category {
			continue
		}
		out = append(out, n.Clone())
	}
	s.mu.RUnlock()

	sortNotes(out, q.Sort)
	return out, nil
}

// activeTenantID names the tenant a view operates on: the session's cached
// tenant after a switch, the token's tenant otherwise.
func activeTenantID(view *authz.View) string {
	if t := view.Tenant(); t != nil && t.ID != "" {
		return t.ID
	}
	if c := view.Claims(); c != nil {
		return c.TenantID
	}
	return ""
}

// find assumes the caller holds s.mu.
func (s *NotesService) find(tenantID, id string) *notedom.Note {
	for _, n := range s.byTenant[tenantID] {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func matches(n *notedom.Note, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Body), q) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func sortNotes(notes []*notedom.Note, key notedom.SortKey) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		switch key {
		case notedom.SortByTitle:
			return a.Title < b.Title
		case notedom.SortByCreated:
			return a.CreatedAt.After(b.CreatedAt)
		default: // updated, newest first
			return a.UpdatedAt.After(b.UpdatedAt)
		}
	})
}

// Seed installs notes directly, bypassing quota checks. Used for demo data
// whose counts must match the seeded tenant usage.
func (s *NotesService) Seed(notes ...*notedom.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range notes {
		s.byTenant[n.TenantID] = append([]*notedom.Note{n}, s.byTenant[n.TenantID]...)
	}
}

// SeedDemoNotes installs the demo collection: counts line up with the
// seeded tenant usage counters (acme 2, globex 1).
func SeedDemoNotes(s *NotesService) {
	base := time.Date(2024, 11, 20, 9, 0, 0, 0, time.UTC)
	s.Seed(
		&notedom.Note{
			ID: ulid.Make().String(), TenantID: "acme",
			AuthorID: "user-1", AuthorName: "admin@acme.test",
			Title: "Welcome to Acme Notes", Body: "Pin anything important to keep it on top.",
			Category: "General", Tags: []string{"welcome"}, Pinned: true,
			CreatedAt: base, UpdatedAt: base,
		},
		&notedom.Note{
			ID: ulid.Make().String(), TenantID: "acme",
			AuthorID: "user-2", AuthorName: "user@acme.test",
			Title: "Q4 planning", Body: "Draft the roadmap before the offsite.",
			Category: "Work", Tags: []string{"planning", "q4"},
			CreatedAt: base.Add(24 * time.Hour), UpdatedAt: base.Add(36 * time.Hour),
		},
		&notedom.Note{
			ID: ulid.Make().String(), TenantID: "globex",
			AuthorID: "user-3", AuthorName: "admin@globex.test",
			Title: "Onboarding checklist", Body: "Invite the rest of the team.",
			Category: "General", Tags: []string{"onboarding"},
			CreatedAt: base.Add(48 * time.Hour), UpdatedAt: base.Add(48 * time.Hour),
		},
	)
}
