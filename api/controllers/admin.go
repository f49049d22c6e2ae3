package controllers

import (
	"net/http"

	"github.com/ventia-app/ventia-backend/api/middleware"
	"github.com/ventia-app/ventia-backend/api/responses"
	"github.com/ventia-app/ventia-backend/internal/admin"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
)

// RequireSuperadmin gates the platform operator routes.
func RequireSuperadmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := middleware.IdentityFromContext(r.Context())
			if !ident.Superadmin() {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "superadmin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func AdminTenantList(svc *admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListTenants(r.Context(), pageParams(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminUserList(svc *admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListUsers(r.Context(), pageParams(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminUserGet(svc *admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.GetUser(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// AdminUserDelete removes an account and everything it owns.
func AdminUserDelete(svc *admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteUser(r.Context(), ident.TenantID(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "account deleted")
	}
}
