package note

import (
	"context"
	"sync"
	"testing"
	"time"

	notedom "notesaas-service/internal/domain/note"
	xerrors "notesaas-service/internal/pkg/errors"
	"notesaas-service/internal/pkg/kv"
	"notesaas-service/internal/pkg/session"
	"notesaas-service/internal/pkg/token"
	"notesaas-service/internal/service/authz"
	tenantsvc "notesaas-service/internal/service/tenant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	codec    *token.Codec
	sessions *session.Store
	resolver *tenantsvc.Resolver
	facade   *authz.Facade
	notes    *NotesService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec := token.NewCodec("notes-app")
	sessions := session.NewStore(kv.NewMemory().Open(), codec, zap.NewNop())
	resolver := tenantsvc.NewResolver(zap.NewNop())
	facade := authz.New(sessions, resolver, zap.NewNop())
	return &fixture{
		codec:    codec,
		sessions: sessions,
		resolver: resolver,
		facade:   facade,
		notes:    NewNotesService(facade, resolver, zap.NewNop()),
	}
}

func (f *fixture) login(t *testing.T, subject, tenantID string, perms ...string) {
	t.Helper()
	raw, _, err := f.codec.Issue(subject, token.Claims{
		Email:       subject + "@example.test",
		Role:        token.RoleMember,
		TenantID:    tenantID,
		Permissions: perms,
	}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.sessions.SetToken(context.Background(), subject, raw))
}

var allNotePerms = []string{token.PermNotesRead, token.PermNotesWrite, token.PermNotesDelete}

func TestCreate_QuotaGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "user-2", "acme", allNotePerms...)

	// acme on FREE: maxNotes 3 with 2 already used. One slot left.
	n, err := f.notes.Create(ctx, "user-2", &notedom.Draft{Title: "last slot"})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "acme", n.TenantID)
	assert.Equal(t, "user-2", n.AuthorID)

	_, err = f.notes.Create(ctx, "user-2", &notedom.Draft{Title: "over quota"})
	assert.ErrorIs(t, err, xerrors.ErrQuotaExceeded)
}

func TestCreate_DeleteFreesQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "user-2", "acme", allNotePerms...)

	n, err := f.notes.Create(ctx, "user-2", &notedom.Draft{Title: "note"})
	require.NoError(t, err)
	_, err = f.notes.Create(ctx, "user-2", &notedom.Draft{Title: "blocked"})
	require.ErrorIs(t, err, xerrors.ErrQuotaExceeded)

	require.NoError(t, f.notes.Delete(ctx, "user-2", n.ID))

	_, err = f.notes.Create(ctx, "user-2", &notedom.Draft{Title: "fits again"})
	assert.NoError(t, err)
}

func TestCreate_UpgradeLiftsQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "user-2", "acme", allNotePerms...)

	_, err := f.notes.Create(ctx, "user-2", &notedom.Draft{Title: "1"})
	require.NoError(t, err)
	_, err = f.notes.Create(ctx, "user-2", &notedom.Draft{Title: "2"})
	require.ErrorIs(t, err, xerrors.ErrQuotaExceeded)

	_, err = f.resolver.ChangePlan("acme", tenantsvc.PlanPro)
	require.NoError(t, err)

	_, err = f.notes.Create(ctx, "user-2", &notedom.Draft{Title: "2"})
	assert.NoError(t, err)
}

func TestCreate_RequiresSessionAndPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.notes.Create(ctx, "nobody", &notedom.Draft{Title: "x"})
	assert.ErrorIs(t, err, xerrors.ErrUnauthorized)

	f.login(t, "viewer", "acme", token.PermNotesRead)
	_, err = f.notes.Create(ctx, "viewer", &notedom.Draft{Title: "x"})
	assert.ErrorIs(t, err, xerrors.ErrPermissionDenied)
}

func TestUpdate_MergesPatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "user-2", "acme", allNotePerms...)

	n, err := f.notes.Create(ctx, "user-2", &notedom.Draft{
		Title: "before", Body: "body", Category: "Work",
	})
	require.NoError(t, err)

	title := "after"
	pinned := true
	got, err := f.notes.Update(ctx, "user-2", n.ID, &notedom.Patch{Title: &title, Pinned: &pinned})
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.True(t, got.Pinned)
	// Untouched fields survive the merge.
	assert.Equal(t, "body", got.Body)
	assert.Equal(t, "Work", got.Category)
}

func TestUpdate_MissingIsError(t *testing.T) {
	f := newFixture(t)
	f.login(t, "user-2", "acme", allNotePerms...)

	title := "x"
	_, err := f.notes.Update(context.Background(), "user-2", "no-such-id", &notedom.Patch{Title: &title})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestDelete_AbsentIsNoop(t *testing.T) {
	f := newFixture(t)
	f.login(t, "user-2", "acme", allNotePerms...)

	assert.NoError(t, f.notes.Delete(context.Background(), "user-2", "no-such-id"))

	// Usage is untouched by the no-op delete.
	ten, _ := f.resolver.Lookup("acme")
	assert.Equal(t, int64(2), ten.Usage[tenantsvc.FeatureMaxNotes])
}

func TestTogglePin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "user-2", "acme", allNotePerms...)

	n, err := f.notes.Create(ctx, "user-2", &notedom.Draft{Title: "note"})
	require.NoError(t, err)
	require.False(t, n.Pinned)

	got, err := f.notes.TogglePin(ctx, "user-2", n.ID)
	require.NoError(t, err)
	assert.True(t, got.Pinned)

	got, err = f.notes.TogglePin(ctx, "user-2", n.ID)
	require.NoError(t, err)
	assert.False(t, got.Pinned)

	// Absent ids are a silent no-op.
	got, err = f.notes.TogglePin(ctx, "user-2", "no-such-id")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestList_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "user-2", "acme", allNotePerms...)
	f.login(t, "user-4", "globex", allNotePerms...)
	SeedDemoNotes(f.notes)

	acmeNotes, err := f.notes.List(ctx, "user-2", &notedom.ListQuery{})
	require.NoError(t, err)
	require.Len(t, acmeNotes, 2)
	for _, n := range acmeNotes {
		assert.Equal(t, "acme", n.TenantID)
	}

	globexNotes, err := f.notes.List(ctx, "user-4", &notedom.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, globexNotes, 1)
}

func TestList_SearchAndCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "user-2", "acme", allNotePerms...)
	SeedDemoNotes(f.notes)

	byTitle, err := f.notes.List(ctx, "user-2", &notedom.ListQuery{Search: "q4 PLANNING"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Q4 planning", byTitle[0].Title)

	byTag, err := f.notes.List(ctx, "user-2", &notedom.ListQuery{Search: "welcome"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)

	byCategory, err := f.notes.List(ctx, "user-2", &notedom.ListQuery{Category: "Work"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)

	none, err := f.notes.List(ctx, "user-2", &notedom.ListQuery{Search: "zzz"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestList_PinnedFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "user-2", "acme", allNotePerms...)

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	f.notes.Seed(
		&notedom.Note{ID: "n1", TenantID: "acme", Title: "banana",
			CreatedAt: base, UpdatedAt: base},
		&notedom.Note{ID: "n2", TenantID: "acme", Title: "apple",
			CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(3 * time.Hour)},
		&notedom.Note{ID: "n3", TenantID: "acme", Title: "cherry", Pinned: true,
			CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour)},
	)

	ids := func(notes []*notedom.Note) []string {
		out := make([]string, len(notes))
		for i, n := range notes {
			out[i] = n.ID
		}
		return out
	}

	// Default sort: pinned first, then most recently updated.
	byUpdated, err := f.notes.List(ctx, "user-2", &notedom.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"n3", "n2", "n1"}, ids(byUpdated))

	byTitle, err := f.notes.List(ctx, "user-2", &notedom.ListQuery{Sort: notedom.SortByTitle})
	require.NoError(t, err)
	assert.Equal(t, []string{"n3", "n2", "n1"}, ids(byTitle))

	byCreated, err := f.notes.List(ctx, "user-2", &notedom.ListQuery{Sort: notedom.SortByCreated})
	require.NoError(t, err)
	assert.Equal(t, []string{"n3", "n2", "n1"}, ids(byCreated))

	// Unpin the cherry note and it falls back into the regular order.
	_, err = f.notes.TogglePin(ctx, "user-2", "n3")
	require.NoError(t, err)
	byTitle, err = f.notes.List(ctx, "user-2", &notedom.ListQuery{Sort: notedom.SortByTitle})
	require.NoError(t, err)
	assert.Equal(t, []string{"n2", "n1", "n3"}, ids(byTitle))
}

func TestCreate_ConcurrentQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "user-2", "acme", allNotePerms...)

	// acme on FREE has exactly one maxNotes slot left; only one of the
	// racing creates may take it.
	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.notes.Create(ctx, "user-2", &notedom.Draft{Title: "race"})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, xerrors.ErrQuotaExceeded)
		}
	}
	assert.Equal(t, 1, created)

	ten, _ := f.resolver.Lookup("acme")
	assert.Equal(t, int64(3), ten.Usage[tenantsvc.FeatureMaxNotes])
}

func TestReadsReturnCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "user-2", "acme", allNotePerms...)

	n, err := f.notes.Create(ctx, "user-2", &notedom.Draft{
		Title: "original", Tags: []string{"keep"},
	})
	require.NoError(t, err)

	// Mutating what Create handed back must not touch the stored record.
	n.Title = "scribbled"
	n.Tags[0] = "scribbled"

	got, err := f.notes.Get(ctx, "user-2", n.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)
	assert.Equal(t, []string{"keep"}, got.Tags)

	// Same for List and Update results.
	listed, err := f.notes.List(ctx, "user-2", &notedom.ListQuery{})
	require.NoError(t, err)
	require.NotEmpty(t, listed)
	listed[0].Title = "scribbled"

	title := "renamed"
	updated, err := f.notes.Update(ctx, "user-2", n.ID, &notedom.Patch{Title: &title})
	require.NoError(t, err)
	updated.Title = "scribbled"

	got, err = f.notes.Get(ctx, "user-2", n.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
}

func TestNotes_FollowTenantSwitch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	SeedDemoNotes(f.notes)

	raw, _, err := f.codec.Issue("root-1", token.Claims{
		Email:       "root@notes.app",
		Role:        token.RoleSuperAdmin,
		TenantID:    "acme",
		Permissions: append([]string{token.PermSwitchTenant}, allNotePerms...),
	}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.sessions.SetToken(ctx, "root-1", raw))

	_, err = f.facade.SwitchTenant(ctx, "root-1", "globex")
	require.NoError(t, err)

	// Listing now serves the switched tenant's collection.
	notes, err := f.notes.List(ctx, "root-1", &notedom.ListQuery{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "globex", notes[0].TenantID)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "user-2", "acme", allNotePerms...)

	n, err := f.notes.Create(ctx, "user-2", &notedom.Draft{Title: "note"})
	require.NoError(t, err)

	got, err := f.notes.Get(ctx, "user-2", n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)

	_, err = f.notes.Get(ctx, "user-2", "no-such-id")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
