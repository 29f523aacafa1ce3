// internal/domain/tenant/dto.go
package tenant

// UpgradeRequest changes a tenant's plan.
type UpgradeRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// InviteRequest invites a user into the tenant.
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"`
}

// SwitchRequest moves the caller's session onto another tenant.
type SwitchRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
}
