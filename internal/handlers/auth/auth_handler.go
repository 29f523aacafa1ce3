// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	authdom "notesaas-service/internal/domain/auth"
	"notesaas-service/internal/middleware"
	xerrors "notesaas-service/internal/pkg/errors"
	"notesaas-service/internal/pkg/response"
	authUsecase "notesaas-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles credential submission (public endpoint).
func (h *AuthHandler) Login(c *gin.Context) {
	var req authdom.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.logger.Info("login failed",
			zap.String("email", req.Email),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		switch {
		case xerrors.Is(err, xerrors.ErrRateLimited):
			response.Error(c, http.StatusTooManyRequests, "too many login attempts", err)
		case xerrors.Is(err, xerrors.ErrTenantNotFound):
			response.Error(c, http.StatusUnauthorized, "login failed", err)
		default:
			response.Error(c, http.StatusUnauthorized, "login failed", xerrors.ErrInvalidCredentials)
		}
		return
	}

	h.logger.Info("user logged in",
		zap.String("subject", loginResp.User.Subject),
		zap.String("email", loginResp.User.Email),
	)

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// Logout destroys the caller's session (requires auth).
func (h *AuthHandler) Logout(c *gin.Context) {
	subject := middleware.MustGetSubject(c)

	if err := h.authService.Logout(c.Request.Context(), subject); err != nil {
		h.logger.Error("logout failed",
			zap.String("subject", subject),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, "logout failed", err)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// GetMe describes the caller's session and resolved tenant (requires auth).
func (h *AuthHandler) GetMe(c *gin.Context) {
	view, ok := middleware.GetView(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	response.Success(c, http.StatusOK, "session", authdom.MeResponse{
		User:   view.Claims(),
		Tenant: view.Tenant(),
	})
}
