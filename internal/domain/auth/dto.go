// internal/domain/auth/dto.go
package auth

import (
	"notesaas-service/internal/domain/tenant"
	"notesaas-service/internal/pkg/token"
)

// LoginRequest carries credentials submitted to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`

	// Filled by the handler, not the client.
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token  string         `json:"token"`
	User   *token.Claims  `json:"user"`
	Tenant *tenant.Tenant `json:"tenant,omitempty"`
}

// MeResponse describes the caller's current session.
type MeResponse struct {
	User   *token.Claims  `json:"user"`
	Tenant *tenant.Tenant `json:"tenant,omitempty"`
}
