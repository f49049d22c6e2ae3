package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ventia-app/ventia-backend/api/responses"
	"github.com/ventia-app/ventia-backend/internal/identity"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
)

// Resolver authenticates a bearer credential and returns the tenant context,
// provisioning on first sight.
type Resolver interface {
	Resolve(ctx context.Context, rawToken string) (*identity.Resolution, error)
}

// Auth resolves the caller's identity and seeds the request context with the
// tenant scope. Requests that fail verification, provisioning, or the
// subscription gate never reach the wrapped handler.
func Auth(resolver Resolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			res, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ident := &Identity{
				Tenant:     res.Tenant,
				Profile:    res.Profile,
				ExternalID: res.ExternalID,
			}
			ctx := WithIdentity(r.Context(), ident)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"tenant_id":   ident.TenantID().String(),
					"external_id": res.ExternalID,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
