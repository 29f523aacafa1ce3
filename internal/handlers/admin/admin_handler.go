// internal/handlers/admin/admin_handler.go
package admin

import (
	"net/http"

	"notesaas-service/internal/pkg/response"
	tenantUsecase "notesaas-service/internal/service/tenant"
	ws "notesaas-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

// AdminHandler backs the platform admin console. Every route is behind the
// platform-admin guard.
type AdminHandler struct {
	resolver *tenantUsecase.Resolver
	hub      *ws.Hub
}

func NewAdminHandler(resolver *tenantUsecase.Resolver, hub *ws.Hub) *AdminHandler {
	return &AdminHandler{resolver: resolver, hub: hub}
}

// ListTenants returns every tenant on the platform.
func (h *AdminHandler) ListTenants(c *gin.Context) {
	response.Success(c, http.StatusOK, "tenants", h.resolver.List())
}

// GetStats reports live websocket connection counts per subject.
func (h *AdminHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "stats", gin.H{
		"connections": h.hub.Stats(),
	})
}
