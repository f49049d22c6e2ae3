package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ventia-app/ventia-backend/api/middleware"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
)

// requireIdentity returns the caller attached by the Auth middleware.
// Handlers mounted behind Auth should never see the error path.
func requireIdentity(r *http.Request) (*middleware.Identity, error) {
	ident := middleware.IdentityFromContext(r.Context())
	if ident == nil || ident.TenantID() == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return ident, nil
}

// pathID parses a uuid route parameter.
func pathID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+param)
	}
	return id, nil
}

// pageParams reads limit/offset from the query string; out-of-range values
// are clamped downstream by Normalize.
func pageParams(r *http.Request) pagination.Params {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return pagination.Params{Limit: limit, Offset: offset}
}

// optionalID parses an optional uuid query parameter.
func optionalID(r *http.Request, param string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+param)
	}
	return &id, nil
}
