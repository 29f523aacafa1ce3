// internal/app/router.go
package app

import (
	adminHandler "notesaas-service/internal/handlers/admin"
	authHandler "notesaas-service/internal/handlers/auth"
	noteHandler "notesaas-service/internal/handlers/note"
	tenantHandler "notesaas-service/internal/handlers/tenant"
	wsHandler "notesaas-service/internal/handlers/websocket"
	"notesaas-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	NoteHandler    *noteHandler.NoteHandler
	TenantHandler  *tenantHandler.TenantHandler
	AdminHandler   *adminHandler.AdminHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	// Session change events for the authenticated subject; the token rides
	// the query string on the handshake.
	r.GET("/ws", h.AuthMiddleware.Auth(), h.WSHandler.HandleConnection)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/login", h.AuthHandler.Login)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.GET("/me", h.AuthHandler.GetMe)
	}

	// ==================== Notes ====================
	notes := api.Group("/notes")
	notes.Use(h.AuthMiddleware.Auth())
	{
		notes.GET("", h.NoteHandler.ListNotes)
		notes.POST("", h.NoteHandler.CreateNote)
		notes.GET("/:id", h.NoteHandler.GetNote)
		notes.PUT("/:id", h.NoteHandler.UpdateNote)
		notes.DELETE("/:id", h.NoteHandler.DeleteNote)
		notes.PUT("/:id/pin", h.NoteHandler.TogglePin)
	}

	// ==================== Tenants ====================
	tenants := api.Group("/tenants")
	tenants.Use(h.AuthMiddleware.Auth())
	{
		tenants.POST("/switch", h.TenantHandler.Switch)
		tenants.GET("/:id", h.TenantHandler.GetTenant)

		// Tenant administration
		tenantAdmin := tenants.Group("")
		tenantAdmin.Use(h.AuthMiddleware.RequireTenantAdmin())
		{
			tenantAdmin.POST("/:id/upgrade", h.TenantHandler.Upgrade)
			tenantAdmin.POST("/:id/invite", h.TenantHandler.Invite)
			tenantAdmin.GET("/:id/members", h.TenantHandler.Members)
		}
	}

	// ==================== Platform Admin ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.SuperAdminOnly()...)
	{
		admin.GET("/tenants", h.AdminHandler.ListTenants)
		admin.GET("/stats", h.AdminHandler.GetStats)
	}

	logger.Info("routes registered")
}
