// internal/domain/auth/entity.go
package auth

import (
	"time"

	"notesaas-service/internal/pkg/token"
)

// Account is a user record in the in-memory account registry.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         token.Role `json:"role"`
	TenantID     string     `json:"tenant_id,omitempty"`
	TenantRole   string     `json:"tenant_role,omitempty"`
	Permissions  []string   `json:"permissions"`
	PasswordHash string     `json:"-"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  time.Time  `json:"last_login_at,omitempty"`
}

// FullName joins the name parts for display.
func (a *Account) FullName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}
