package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/ventia-app/ventia-backend/pkg/db/models"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// Identity is the per-request tenant context attached by the Auth
// middleware. TenantID is the scoping key for all domain tables and equals
// the user-profile id, not the raw tenant record id.
type Identity struct {
	Tenant     *models.Tenant
	Profile    *models.UserProfile
	ExternalID string
}

// TenantID returns the scoping key used by every tenant-scoped query.
func (i *Identity) TenantID() uuid.UUID {
	if i == nil || i.Profile == nil {
		return uuid.Nil
	}
	return i.Profile.ID
}

// Superadmin reports whether the caller may reach admin-only endpoints.
func (i *Identity) Superadmin() bool {
	return i != nil && i.Profile != nil && i.Profile.Superadmin
}

// WithIdentity injects the resolved identity into the request context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, identity)
}

// IdentityFromContext returns the identity attached by Auth, or nil for
// unauthenticated routes.
func IdentityFromContext(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxIdentity).(*Identity); ok {
		return v
	}
	return nil
}
