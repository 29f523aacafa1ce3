// internal/handlers/tenant/tenant_handler.go
package tenant

import (
	"net/http"

	tenantdom "notesaas-service/internal/domain/tenant"
	"notesaas-service/internal/middleware"
	xerrors "notesaas-service/internal/pkg/errors"
	"notesaas-service/internal/pkg/response"
	authUsecase "notesaas-service/internal/service/auth"
	"notesaas-service/internal/service/authz"
	tenantUsecase "notesaas-service/internal/service/tenant"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TenantHandler struct {
	resolver    *tenantUsecase.Resolver
	facade      *authz.Facade
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewTenantHandler(
	resolver *tenantUsecase.Resolver,
	facade *authz.Facade,
	authService *authUsecase.AuthService,
	logger *zap.Logger,
) *TenantHandler {
	return &TenantHandler{
		resolver:    resolver,
		facade:      facade,
		authService: authService,
		logger:      logger,
	}
}

// GetTenant returns tenant metadata. Callers may read their own tenant;
// platform admins may read any.
func (h *TenantHandler) GetTenant(c *gin.Context) {
	id := c.Param("id")
	view, _ := middleware.GetView(c)
	claims := view.Claims()
	if claims.TenantID != id && !view.IsSuperAdmin() {
		response.Forbidden(c, "not a member of this tenant")
		return
	}

	t, err := h.resolver.Resolve(c.Request.Context(), id)
	if err != nil {
		response.Error(c, http.StatusNotFound, "tenant not found", err)
		return
	}
	response.Success(c, http.StatusOK, "tenant", t)
}

// Upgrade changes the tenant's plan; quota changes take effect immediately.
// Tenant admin only (enforced by the router).
func (h *TenantHandler) Upgrade(c *gin.Context) {
	id := c.Param("id")
	view, _ := middleware.GetView(c)
	if view.Claims().TenantID != id && !view.IsSuperAdmin() {
		response.Forbidden(c, "not a member of this tenant")
		return
	}

	req := tenantdom.UpgradeRequest{Plan: tenantUsecase.PlanPro}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, "invalid request", err)
			return
		}
	}

	t, err := h.resolver.ChangePlan(id, req.Plan)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrTenantNotFound):
			response.Error(c, http.StatusNotFound, "tenant not found", err)
		case xerrors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "unknown plan", err)
		default:
			response.Error(c, http.StatusInternalServerError, "upgrade failed", err)
		}
		return
	}

	h.logger.Info("tenant upgraded",
		zap.String("tenant_id", id), zap.String("plan", req.Plan))
	response.Success(c, http.StatusOK, "tenant upgraded", t)
}

// Invite creates a member account in the tenant, gated by the maxUsers
// quota. Tenant admin only (enforced by the router).
func (h *TenantHandler) Invite(c *gin.Context) {
	id := c.Param("id")
	view, _ := middleware.GetView(c)
	if view.Claims().TenantID != id && !view.IsSuperAdmin() {
		response.Forbidden(c, "not a member of this tenant")
		return
	}

	var req tenantdom.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	acct, tempPassword, err := h.authService.Invite(c.Request.Context(), id, req.Email, req.Role)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrQuotaExceeded):
			response.Error(c, http.StatusForbidden, "plan quota exceeded", err)
		case xerrors.Is(err, xerrors.ErrConflict):
			response.Error(c, http.StatusConflict, "account already exists", err)
		case xerrors.Is(err, xerrors.ErrTenantNotFound):
			response.Error(c, http.StatusNotFound, "tenant not found", err)
		default:
			response.Error(c, http.StatusInternalServerError, "invite failed", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "user invited", gin.H{
		"account":       acct,
		"temp_password": tempPassword,
	})
}

// Members lists the tenant's accounts. Tenant admin only (enforced by the
// router).
func (h *TenantHandler) Members(c *gin.Context) {
	id := c.Param("id")
	view, _ := middleware.GetView(c)
	if view.Claims().TenantID != id && !view.IsSuperAdmin() {
		response.Forbidden(c, "not a member of this tenant")
		return
	}
	response.Success(c, http.StatusOK, "members", h.authService.ListTenantMembers(id))
}

// Switch moves the caller's cached tenant onto another tenant. Requires the
// switch_tenant permission; everyone else gets an explicit denial.
func (h *TenantHandler) Switch(c *gin.Context) {
	var req tenantdom.SwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	t, err := h.facade.SwitchTenant(c.Request.Context(), middleware.MustGetSubject(c), req.TenantID)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrPermissionDenied):
			response.Error(c, http.StatusForbidden, "tenant switch denied", err)
		case xerrors.Is(err, xerrors.ErrTenantNotFound):
			response.Error(c, http.StatusNotFound, "tenant not found", err)
		default:
			response.Error(c, http.StatusInternalServerError, "tenant switch failed", err)
		}
		return
	}
	response.Success(c, http.StatusOK, "tenant switched", t)
}
