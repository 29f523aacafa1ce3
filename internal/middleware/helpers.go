// internal/middleware/helpers.go
package middleware

import (
	"notesaas-service/internal/pkg/token"
	"notesaas-service/internal/service/authz"

	"github.com/gin-gonic/gin"
)

// GetSubject gets the authenticated subject id from context.
func GetSubject(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxSubject)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// MustGetSubject gets the subject id or panics. Only for handlers behind
// Auth().
func MustGetSubject(c *gin.Context) string {
	s, ok := GetSubject(c)
	if !ok {
		panic("subject not found in context")
	}
	return s
}

// GetClaims gets the live session claims from context.
func GetClaims(c *gin.Context) (*token.Claims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*token.Claims)
	return claims, ok
}

// GetView gets the authorization view from context.
func GetView(c *gin.Context) (*authz.View, bool) {
	v, exists := c.Get(ctxView)
	if !exists {
		return nil, false
	}
	view, ok := v.(*authz.View)
	return view, ok
}
