// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"notesaas-service/internal/pkg/response"
	"notesaas-service/internal/pkg/session"
	"notesaas-service/internal/pkg/token"
	"notesaas-service/internal/service/authz"

	"github.com/gin-gonic/gin"
)

// Context keys set by Auth().
const (
	ctxSubject = "subject"
	ctxClaims  = "claims"
	ctxView    = "view"
)

// Navigation targets for guard rejections. A missing session goes back to
// login; a wrong role goes to the regular notes view.
const (
	redirectLogin = "/login"
	redirectNotes = "/notes"
)

type AuthMiddleware struct {
	codec    *token.Codec
	sessions *session.Store
	facade   *authz.Facade
}

func NewAuthMiddleware(codec *token.Codec, sessions *session.Store, facade *authz.Facade) *AuthMiddleware {
	return &AuthMiddleware{codec: codec, sessions: sessions, facade: facade}
}

// Auth is the authenticated-guard: it decodes the bearer token, checks the
// session is still live (not expired, not logged out from another context)
// and stores the authorization view for downstream handlers. Rejections
// carry the login redirect.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			response.Redirect(c, http.StatusUnauthorized, "missing authorization token", redirectLogin)
			return
		}

		claims, err := m.codec.Decode(raw)
		if err != nil {
			response.Redirect(c, http.StatusUnauthorized, "invalid token", redirectLogin)
			return
		}
		subject := claims.Subject

		ctx := c.Request.Context()
		live := m.sessions.Claims(ctx, subject)
		if live == nil || live.ID != claims.ID {
			// Expired, or logged out from another context.
			response.Redirect(c, http.StatusUnauthorized, "session expired or revoked", redirectLogin)
			return
		}

		view := m.facade.View(ctx, subject)
		if !view.IsAuthenticated() {
			response.Redirect(c, http.StatusUnauthorized, "not authenticated", redirectLogin)
			return
		}

		c.Set(ctxSubject, subject)
		c.Set(ctxClaims, live)
		c.Set(ctxView, view)
		c.Next()
	}
}

// RequireSuperAdmin is the platform-admin-guard. It distinguishes "wrong
// role" from "no session": authenticated non-admins are sent to the notes
// view, not to login. MUST be used after Auth().
func (m *AuthMiddleware) RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, ok := GetView(c)
		if !ok {
			response.Redirect(c, http.StatusUnauthorized, "authentication required", redirectLogin)
			return
		}
		if !view.IsSuperAdmin() {
			response.Redirect(c, http.StatusForbidden, "platform admin required", redirectNotes)
			return
		}
		c.Next()
	}
}

// RequireTenantAdmin passes tenant admins and platform admins.
// MUST be used after Auth().
func (m *AuthMiddleware) RequireTenantAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, ok := GetView(c)
		if !ok {
			response.Redirect(c, http.StatusUnauthorized, "authentication required", redirectLogin)
			return
		}
		if !view.IsTenantAdmin() && !view.IsSuperAdmin() {
			response.Redirect(c, http.StatusForbidden, "tenant admin required", redirectNotes)
			return
		}
		c.Next()
	}
}

// RequirePermission requires the caller to hold a specific permission.
// MUST be used after Auth().
func (m *AuthMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, ok := GetView(c)
		if !ok {
			response.Redirect(c, http.StatusUnauthorized, "authentication required", redirectLogin)
			return
		}
		if !view.HasPermission(permission) {
			response.Forbidden(c, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// SuperAdminOnly returns middlewares for platform-admin routes.
func (m *AuthMiddleware) SuperAdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{m.Auth(), m.RequireSuperAdmin()}
}

// TenantAdminOnly returns middlewares for tenant-admin routes.
func (m *AuthMiddleware) TenantAdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{m.Auth(), m.RequireTenantAdmin()}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// Fallback to query param, used by the websocket handshake
	return c.Query("token")
}
