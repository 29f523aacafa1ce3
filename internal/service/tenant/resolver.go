// internal/service/tenant/resolver.go
package tenant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tenantdom "notesaas-service/internal/domain/tenant"
	xerrors "notesaas-service/internal/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Plan names.
const (
	PlanFree       = "FREE"
	PlanPro        = "PRO"
	PlanEnterprise = "ENTERPRISE"
)

// Capability keys used across plans.
const (
	FeatureMaxUsers       = "maxUsers"
	FeatureMaxNotes       = "maxNotes"
	FeatureCollaboration  = "collaboration"
	FeatureAnalytics      = "analytics"
	FeatureCustomBranding = "customBranding"
	FeatureAPIAccess      = "apiAccess"
)

// Plans is the static plan table. -1 limits mean unlimited.
var Plans = map[string]tenantdom.FeatureSet{
	PlanFree: {
		FeatureMaxUsers:       tenantdom.FeatureLimit(-1),
		FeatureMaxNotes:       tenantdom.FeatureLimit(3),
		FeatureCollaboration:  tenantdom.FeatureBool(false),
		FeatureAnalytics:      tenantdom.FeatureBool(false),
		FeatureCustomBranding: tenantdom.FeatureBool(false),
		FeatureAPIAccess:      tenantdom.FeatureBool(false),
	},
	PlanPro: {
		FeatureMaxUsers:       tenantdom.FeatureLimit(25),
		FeatureMaxNotes:       tenantdom.FeatureLimit(5000),
		FeatureCollaboration:  tenantdom.FeatureBool(true),
		FeatureAnalytics:      tenantdom.FeatureBool(true),
		FeatureCustomBranding: tenantdom.FeatureBool(false),
		FeatureAPIAccess:      tenantdom.FeatureBool(true),
	},
	PlanEnterprise: {
		FeatureMaxUsers:       tenantdom.FeatureLimit(-1),
		FeatureMaxNotes:       tenantdom.FeatureLimit(-1),
		FeatureCollaboration:  tenantdom.FeatureBool(true),
		FeatureAnalytics:      tenantdom.FeatureBool(true),
		FeatureCustomBranding: tenantdom.FeatureBool(true),
		FeatureAPIAccess:      tenantdom.FeatureBool(true),
	},
}

// Resolver produces tenant records. Known tenants come from the seeded
// registry; Resolve fabricates a deterministic record for any other id,
// standing in for a remote tenant service. Results are cached per id and
// concurrent resolutions of the same id are de-duplicated.
type Resolver struct {
	logger *zap.Logger

	mu      sync.RWMutex
	tenants map[string]*tenantdom.Tenant

	group singleflight.Group
}

func NewResolver(logger *zap.Logger) *Resolver {
	r := &Resolver{
		logger:  logger,
		tenants: make(map[string]*tenantdom.Tenant),
	}
	r.seed()
	return r
}

func (r *Resolver) seed() {
	for _, t := range []*tenantdom.Tenant{
		{
			ID:        "acme",
			Name:      "Acme Corporation",
			Slug:      "acme",
			Domain:    "acme.example.com",
			Plan:      PlanFree,
			Features:  clonePlan(PlanFree),
			Usage:     map[string]int64{FeatureMaxUsers: 2, FeatureMaxNotes: 2},
			CreatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:        "globex",
			Name:      "Globex Corporation",
			Slug:      "globex",
			Domain:    "globex.example.com",
			Plan:      PlanFree,
			Features:  clonePlan(PlanFree),
			Usage:     map[string]int64{FeatureMaxUsers: 2, FeatureMaxNotes: 1},
			CreatedAt: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		},
	} {
		t.UpdatedAt = t.CreatedAt
		r.tenants[t.ID] = t
	}
}

// Lookup is the strict variant used at login: unknown ids fail.
func (r *Resolver) Lookup(id string) (*tenantdom.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrTenantNotFound, id)
	}
	return t.Clone(), nil
}

// Resolve returns the tenant for id, fabricating and caching a record when
// the id is unknown. Idempotent for a given id; duplicate in-flight
// resolutions collapse onto a single fabrication.
func (r *Resolver) Resolve(ctx context.Context, id string) (*tenantdom.Tenant, error) {
	if id == "" {
		return nil, xerrors.Wrap(xerrors.ErrTenantNotFound, "empty tenant id")
	}

	r.mu.RLock()
	t, ok := r.tenants[id]
	r.mu.RUnlock()
	if ok {
		return t.Clone(), nil
	}

	v, err, _ := r.group.Do(id, func() (interface{}, error) {
		// Re-check under the flight: a concurrent Resolve may have won.
		r.mu.RLock()
		t, ok := r.tenants[id]
		r.mu.RUnlock()
		if ok {
			return t.Clone(), nil
		}

		fab := r.fabricate(id)
		r.mu.Lock()
		r.tenants[id] = fab
		r.mu.Unlock()
		r.logger.Info("fabricated tenant record",
			zap.String("tenant_id", id), zap.String("plan", fab.Plan))
		return fab.Clone(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*tenantdom.Tenant), nil
}

// fabricate derives a display name and domain from the id and copies plan
// features from the static table, mirroring what a remote tenant service
// would return.
func (r *Resolver) fabricate(id string) *tenantdom.Tenant {
	suffix := id
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	now := time.Now()
	return &tenantdom.Tenant{
		ID:        id,
		Name:      fmt.Sprintf("Company %s", strings.ToUpper(suffix)),
		Slug:      id,
		Domain:    fmt.Sprintf("company-%s.example.com", strings.ToLower(suffix)),
		Plan:      PlanFree,
		Features:  clonePlan(PlanFree),
		Usage:     map[string]int64{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChangePlan moves a tenant to another plan and swaps in that plan's
// feature map. Quota changes take effect immediately.
func (r *Resolver) ChangePlan(id, plan string) (*tenantdom.Tenant, error) {
	features, ok := Plans[plan]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "unknown plan "+plan)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrTenantNotFound, id)
	}
	t.Plan = plan
	t.Features = make(tenantdom.FeatureSet, len(features))
	for k, v := range features {
		t.Features[k] = v
	}
	t.UpdatedAt = time.Now()
	return t.Clone(), nil
}

// Reserve claims one unit of a numeric capability, checking headroom and
// bumping the counter under a single lock so two concurrent claims cannot
// both take the last slot. Unlimited capabilities always succeed but are
// still counted. Release a reservation with AddUsage(id, key, -1).
func (r *Resolver) Reserve(id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrTenantNotFound, id)
	}
	if t.Remaining(key).Exhausted() {
		return xerrors.Wrap(xerrors.ErrQuotaExceeded, key)
	}
	if t.Usage == nil {
		t.Usage = make(map[string]int64)
	}
	t.Usage[key]++
	t.UpdatedAt = time.Now()
	return nil
}

// AddUsage adjusts a tenant's consumption counter for a capability.
// Unknown tenants are ignored; counters never go negative.
func (r *Resolver) AddUsage(id, key string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return
	}
	if t.Usage == nil {
		t.Usage = make(map[string]int64)
	}
	n := t.Usage[key] + delta
	if n < 0 {
		n = 0
	}
	t.Usage[key] = n
	t.UpdatedAt = time.Now()
}

// List returns every known tenant, for the platform admin console.
func (r *Resolver) List() []*tenantdom.Tenant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*tenantdom.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t.Clone())
	}
	return out
}

func clonePlan(plan string) tenantdom.FeatureSet {
	src := Plans[plan]
	dst := make(tenantdom.FeatureSet, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
