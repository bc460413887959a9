package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Autilos/r107-garage-hub/app/database"
)

// ErrUnauthenticated means the caller presented no usable credential.
// ErrForbidden means the credential was valid but lacks the admin role.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Authorizer gates ingestion triggers: either the scheduler's shared secret
// or a bearer token resolving to an administrator. Read-only, fails closed.
type Authorizer struct {
	cronSecret string
	identity   IdentityClient
	roles      database.RoleRepository
}

func NewAuthorizer(cronSecret string, identity IdentityClient, roles database.RoleRepository) *Authorizer {
	return &Authorizer{
		cronSecret: cronSecret,
		identity:   identity,
		roles:      roles,
	}
}

// Authorize checks the scheduler secret first, then the admin bearer path.
func (a *Authorizer) Authorize(ctx context.Context, cronHeader, authHeader string) error {
	if a.cronSecret != "" && cronHeader != "" {
		if subtle.ConstantTimeCompare([]byte(cronHeader), []byte(a.cronSecret)) == 1 {
			slog.Info("Scheduler request authenticated")
			return nil
		}
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return ErrUnauthenticated
	}

	userID, err := a.identity.GetUserID(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("token validation: %w", err)
	}

	isAdmin, err := a.roles.HasRole(userID, "admin")
	if err != nil {
		return fmt.Errorf("role lookup: %w", err)
	}
	if !isAdmin {
		slog.Info("Caller lacks admin role", "user_id", userID)
		return ErrForbidden
	}

	slog.Info("Admin access verified", "user_id", userID)
	return nil
}
