// internal/service/auth/auth.go
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	authdom "notesaas-service/internal/domain/auth"
	xerrors "notesaas-service/internal/pkg/errors"
	"notesaas-service/internal/pkg/session"
	"notesaas-service/internal/pkg/token"
	tenantsvc "notesaas-service/internal/service/tenant"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	accounts *AccountRegistry
	codec    *token.Codec
	sessions *session.Store
	resolver *tenantsvc.Resolver
	limiter  *LoginLimiter
	logger   *zap.Logger
	tokenTTL time.Duration
}

func NewAuthService(
	accounts *AccountRegistry,
	codec *token.Codec,
	sessions *session.Store,
	resolver *tenantsvc.Resolver,
	limiter *LoginLimiter,
	logger *zap.Logger,
	tokenTTL time.Duration,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		codec:    codec,
		sessions: sessions,
		resolver: resolver,
		limiter:  limiter,
		logger:   logger,
		tokenTTL: tokenTTL,
	}
}

// Login checks credentials, issues a token and creates the session. The
// account's tenant is resolved strictly: an account pointing at an unknown
// tenant cannot log in.
func (s *AuthService) Login(ctx context.Context, req *authdom.LoginRequest) (*authdom.LoginResponse, error) {
	allowed, remaining := s.limiter.Allow(req.IPAddress, req.Email)
	if !allowed {
		s.logger.Warn("login throttled",
			zap.String("email", req.Email), zap.String("ip", req.IPAddress))
		return nil, xerrors.ErrRateLimited
	}

	acct, err := s.accounts.FindByEmail(req.Email)
	if err != nil {
		return nil, xerrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info("password mismatch",
			zap.String("email", req.Email), zap.Int64("attempts_remaining", remaining))
		return nil, xerrors.ErrInvalidCredentials
	}
	switch acct.Status {
	case "active":
	case "invited":
		// First successful use of the delivered password activates the
		// account.
		s.accounts.Activate(acct.Email)
	default:
		return nil, xerrors.ErrInvalidCredentials
	}

	resp := &authdom.LoginResponse{}
	claims := token.Claims{
		Email:       acct.Email,
		Role:        acct.Role,
		TenantID:    acct.TenantID,
		TenantRole:  acct.TenantRole,
		Permissions: acct.Permissions,
	}

	if acct.TenantID != "" {
		ten, err := s.resolver.Lookup(acct.TenantID)
		if err != nil {
			return nil, err
		}
		claims.Plan = ten.Plan
		resp.Tenant = ten
	}

	raw, issued, err := s.codec.Issue(acct.ID, claims, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if err := s.sessions.SetToken(ctx, acct.ID, raw); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	if resp.Tenant != nil {
		if err := s.sessions.SetTenant(ctx, acct.ID, resp.Tenant); err != nil {
			return nil, fmt.Errorf("persist tenant snapshot: %w", err)
		}
	}

	s.limiter.Reset(req.IPAddress, req.Email)
	s.accounts.TouchLogin(acct.Email, time.Now())

	resp.Token = raw
	resp.User = issued
	return resp, nil
}

// Logout destroys the subject's session everywhere the KV store is shared.
func (s *AuthService) Logout(ctx context.Context, subject string) error {
	return s.sessions.Clear(ctx, subject)
}

// Invite creates a member account inside a tenant, gated by the plan's
// maxUsers quota. The generated password is returned once for delivery; the
// account activates on its first successful login.
func (s *AuthService) Invite(ctx context.Context, tenantID, email, tenantRole string) (*authdom.Account, string, error) {
	if s.accounts.ExistsByEmail(email) {
		return nil, "", xerrors.Wrap(xerrors.ErrConflict, email)
	}
	if err := s.resolver.Reserve(tenantID, tenantsvc.FeatureMaxUsers); err != nil {
		return nil, "", err
	}

	if tenantRole != token.TenantRoleAdmin {
		tenantRole = token.TenantRoleMember
	}
	role := token.RoleMember
	perms := memberPermissions
	if tenantRole == token.TenantRoleAdmin {
		role = token.RoleTenantAdmin
		perms = adminPermissions
	}

	tempPassword := strings.ToLower(ulid.Make().String())
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.resolver.AddUsage(tenantID, tenantsvc.FeatureMaxUsers, -1)
		return nil, "", err
	}

	acct := &authdom.Account{
		Email:        email,
		Role:         role,
		TenantID:     tenantID,
		TenantRole:   tenantRole,
		Permissions:  perms,
		PasswordHash: string(hash),
		Status:       "invited",
	}
	if err := s.accounts.Create(acct); err != nil {
		s.resolver.AddUsage(tenantID, tenantsvc.FeatureMaxUsers, -1)
		return nil, "", err
	}

	s.logger.Info("user invited",
		zap.String("email", email), zap.String("tenant_id", tenantID),
		zap.String("tenant_role", tenantRole))
	return acct, tempPassword, nil
}

// EnsureSuperAdminExists creates the platform admin account if missing.
// Called at startup with credentials from the environment.
func (s *AuthService) EnsureSuperAdminExists(ctx context.Context, email, password, fullName string) error {
	if s.accounts.ExistsByEmail(email) {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash super admin password: %w", err)
	}
	first, last := splitName(fullName)
	acct := &authdom.Account{
		Email:     email,
		FirstName: first,
		LastName:  last,
		Role:      token.RoleSuperAdmin,
		Permissions: append([]string{token.PermSwitchTenant, token.PermTenantManage},
			memberPermissions...),
		PasswordHash: string(hash),
	}
	if err := s.accounts.Create(acct); err != nil {
		return err
	}
	s.logger.Info("super admin created", zap.String("email", email))
	return nil
}

// ListTenantMembers returns a tenant's accounts, for the tenant admin view.
func (s *AuthService) ListTenantMembers(tenantID string) []*authdom.Account {
	return s.accounts.ListByTenant(tenantID)
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
