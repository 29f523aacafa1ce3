// internal/pkg/token/claims.go
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the platform-level role carried in a token.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleTenantAdmin Role = "TENANT_ADMIN"
	RoleMember      Role = "MEMBER"
)

// Tenant-scoped roles.
const (
	TenantRoleAdmin  = "admin"
	TenantRoleMember = "member"
)

// Well-known permission strings.
const (
	PermNotesRead    = "notes:read"
	PermNotesWrite   = "notes:write"
	PermNotesDelete  = "notes:delete"
	PermUsersInvite  = "users:invite"
	PermTenantManage = "tenant:manage"
	PermSwitchTenant = "switch_tenant"
)

// Claims is the payload segment of a session token.
type Claims struct {
	Email       string   `json:"email"`
	Role        Role     `json:"role"`
	TenantID    string   `json:"tenantId,omitempty"`
	TenantRole  string   `json:"tenantRole,omitempty"`
	Plan        string   `json:"plan,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// HasPermission checks if the claims contain a specific permission.
func (c *Claims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// IsSuperAdmin checks if the subject is a platform admin.
func (c *Claims) IsSuperAdmin() bool {
	return c.Role == RoleSuperAdmin
}

// IsTenantAdmin checks if the subject administers its tenant.
func (c *Claims) IsTenantAdmin() bool {
	return c.TenantRole == TenantRoleAdmin || c.Role == RoleTenantAdmin
}

// Expired reports whether the claims carry an expiry at or before now.
// Claims without an expiry are treated as expired: every issued session
// token carries one.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !c.ExpiresAt.Time.After(now)
}
