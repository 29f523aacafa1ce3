// internal/service/authz/facade.go
package authz

import (
	"context"

	tenantdom "notesaas-service/internal/domain/tenant"
	xerrors "notesaas-service/internal/pkg/errors"
	"notesaas-service/internal/pkg/session"
	"notesaas-service/internal/pkg/token"
	tenantsvc "notesaas-service/internal/service/tenant"

	"go.uber.org/zap"
)

// Facade derives authorization views from session and tenant state. It is
// the only component route guards and the notes store consult; it never
// owns state of its own.
type Facade struct {
	sessions *session.Store
	resolver *tenantsvc.Resolver
	logger   *zap.Logger
}

func New(sessions *session.Store, resolver *tenantsvc.Resolver, logger *zap.Logger) *Facade {
	return &Facade{sessions: sessions, resolver: resolver, logger: logger}
}

// View snapshots a subject's authorization state: token, claims and tenant.
// The session's cached tenant names which tenant is active — a switch
// replaces it — and the canonical resolver record (with live usage counters)
// is preferred for that id; the persisted snapshot itself is the fallback
// when resolution fails.
func (f *Facade) View(ctx context.Context, subject string) *View {
	claims := f.sessions.Claims(ctx, subject)
	raw := f.sessions.Token(ctx, subject)

	var ten *tenantdom.Tenant
	if claims != nil {
		snap := f.sessions.Tenant(ctx, subject)
		id := claims.TenantID
		if snap != nil && snap.ID != "" {
			id = snap.ID
		}
		if id != "" {
			t, err := f.resolver.Resolve(ctx, id)
			if err != nil {
				f.logger.Warn("tenant resolution failed, using session snapshot",
					zap.String("tenant_id", id), zap.Error(err))
				t = snap
			}
			ten = t
		}
	}
	return &View{raw: raw, claims: claims, tenant: ten}
}

// SwitchTenant replaces the subject's cached tenant. Only callers holding
// the switch_tenant permission may switch; everyone else gets an explicit
// ErrPermissionDenied rather than a silent no-op.
func (f *Facade) SwitchTenant(ctx context.Context, subject, tenantID string) (*tenantdom.Tenant, error) {
	claims := f.sessions.Claims(ctx, subject)
	if claims == nil {
		return nil, xerrors.ErrUnauthorized
	}
	if !claims.HasPermission(token.PermSwitchTenant) {
		return nil, xerrors.Wrap(xerrors.ErrPermissionDenied, "switch_tenant permission required")
	}
	t, err := f.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := f.sessions.SetTenant(ctx, subject, t); err != nil {
		return nil, err
	}
	f.logger.Info("tenant switched",
		zap.String("subject", subject), zap.String("tenant_id", tenantID))
	return t, nil
}

// View is a read-only snapshot of one subject's authorization state.
type View struct {
	raw    string
	claims *token.Claims
	tenant *tenantdom.Tenant
}

// IsAuthenticated requires both a token and derivable claims.
func (v *View) IsAuthenticated() bool {
	return v.raw != "" && v.claims != nil
}

// IsSuperAdmin reports whether the subject is a platform admin.
func (v *View) IsSuperAdmin() bool {
	return v.claims != nil && v.claims.IsSuperAdmin()
}

// IsTenantAdmin reports whether the subject administers its tenant.
func (v *View) IsTenantAdmin() bool {
	return v.claims != nil && v.claims.IsTenantAdmin()
}

// HasPermission reports whether the claims carry the permission. False
// whenever there are no claims.
func (v *View) HasPermission(p string) bool {
	return v.claims != nil && v.claims.HasPermission(p)
}

// CanAccess reports whether the tenant's plan grants a capability: boolean
// true or the -1 unlimited sentinel. False when tenant or feature is absent.
func (v *View) CanAccess(featureKey string) bool {
	return v.tenant.CanAccess(featureKey)
}

// RemainingQuota computes headroom for a numeric capability. Zero when
// tenant, features or usage are absent.
func (v *View) RemainingQuota(key string) tenantdom.Quota {
	return v.tenant.Remaining(key)
}

// Claims exposes the underlying claims for handlers; nil when logged out.
func (v *View) Claims() *token.Claims {
	return v.claims
}

// Tenant exposes the resolved tenant; nil when the subject carries none.
func (v *View) Tenant() *tenantdom.Tenant {
	return v.tenant
}
