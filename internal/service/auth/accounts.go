// internal/service/auth/accounts.go
package auth

import (
	"strconv"
	"strings"
	"sync"
	"time"

	authdom "notesaas-service/internal/domain/auth"
	xerrors "notesaas-service/internal/pkg/errors"
	"notesaas-service/internal/pkg/token"

	"golang.org/x/crypto/bcrypt"
)

// AccountRegistry is the in-memory account store. It replaces a real
// identity backend; lookups are keyed by lowercased email.
type AccountRegistry struct {
	mu       sync.RWMutex
	byEmail  map[string]*authdom.Account
	sequence int
}

func NewAccountRegistry() *AccountRegistry {
	return &AccountRegistry{byEmail: make(map[string]*authdom.Account)}
}

// Create adds an account; duplicate emails conflict.
func (r *AccountRegistry) Create(acct *authdom.Account) error {
	key := strings.ToLower(acct.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[key]; exists {
		return xerrors.Wrap(xerrors.ErrConflict, acct.Email)
	}
	if acct.ID == "" {
		r.sequence++
		acct.ID = "user-" + strconv.Itoa(r.sequence)
	} else if n, err := strconv.Atoi(strings.TrimPrefix(acct.ID, "user-")); err == nil && n > r.sequence {
		// Keep generated ids clear of explicitly assigned ones.
		r.sequence = n
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now()
	}
	if acct.Status == "" {
		acct.Status = "active"
	}
	r.byEmail[key] = acct
	return nil
}

// FindByEmail returns the account for an email, or ErrNotFound.
func (r *AccountRegistry) FindByEmail(email string) (*authdom.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return acct, nil
}

// ExistsByEmail reports whether an account exists for the email.
func (r *AccountRegistry) ExistsByEmail(email string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[strings.ToLower(email)]
	return ok
}

// Activate flips an invited account to active once its holder has proven
// the delivered password.
func (r *AccountRegistry) Activate(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.byEmail[strings.ToLower(email)]; ok && acct.Status == "invited" {
		acct.Status = "active"
	}
}

// TouchLogin records a successful login time.
func (r *AccountRegistry) TouchLogin(email string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.byEmail[strings.ToLower(email)]; ok {
		acct.LastLoginAt = at
	}
}

// ListByTenant returns the accounts belonging to a tenant.
func (r *AccountRegistry) ListByTenant(tenantID string) []*authdom.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*authdom.Account
	for _, acct := range r.byEmail {
		if acct.TenantID == tenantID {
			out = append(out, acct)
		}
	}
	return out
}

// memberPermissions is the default permission set for tenant members.
var memberPermissions = []string{
	token.PermNotesRead, token.PermNotesWrite, token.PermNotesDelete,
}

// adminPermissions extends member permissions with tenant management.
var adminPermissions = append([]string{
	token.PermUsersInvite, token.PermTenantManage,
}, memberPermissions...)

// SeedDemoAccounts installs the demo users. All passwords are "password".
func SeedDemoAccounts(r *AccountRegistry) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	demo := []*authdom.Account{
		{
			ID: "user-1", Email: "admin@acme.test",
			FirstName: "Admin", LastName: "User",
			Role: token.RoleTenantAdmin, TenantID: "acme", TenantRole: token.TenantRoleAdmin,
			Permissions: adminPermissions,
		},
		{
			ID: "user-2", Email: "user@acme.test",
			FirstName: "Regular", LastName: "User",
			Role: token.RoleMember, TenantID: "acme", TenantRole: token.TenantRoleMember,
			Permissions: memberPermissions,
		},
		{
			ID: "user-3", Email: "admin@globex.test",
			FirstName: "Admin", LastName: "User",
			Role: token.RoleTenantAdmin, TenantID: "globex", TenantRole: token.TenantRoleAdmin,
			Permissions: adminPermissions,
		},
		{
			ID: "user-4", Email: "user@globex.test",
			FirstName: "Regular", LastName: "User",
			Role: token.RoleMember, TenantID: "globex", TenantRole: token.TenantRoleMember,
			Permissions: memberPermissions,
		},
	}
	for _, acct := range demo {
		acct.PasswordHash = string(hash)
		if err := r.Create(acct); err != nil {
			return err
		}
	}
	return nil
}
