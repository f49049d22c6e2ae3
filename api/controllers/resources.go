package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/ventia-app/ventia-backend/api/responses"
	"github.com/ventia-app/ventia-backend/api/validators"
	"github.com/ventia-app/ventia-backend/internal/scope"
	"github.com/ventia-app/ventia-backend/pkg/db"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
)

// Resource is the shared CRUD controller for plain tenant-owned tables:
// categories, customers, suppliers, offers, shipping zones, invitations.
// Anything with domain rules beyond scoping gets its own controller.
type Resource[T any, P interface {
	*T
	scope.TenantOwned
}] struct {
	dbc        *db.Client
	name       string
	orderBy    string
	searchCols []string
	logg       *logger.Logger
}

// ResourceOptions configures one resource controller.
type ResourceOptions struct {
	Name       string
	OrderBy    string
	SearchCols []string
}

func NewResource[T any, P interface {
	*T
	scope.TenantOwned
}](dbc *db.Client, logg *logger.Logger, opts ResourceOptions) *Resource[T, P] {
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	return &Resource[T, P]{
		dbc:        dbc,
		name:       opts.Name,
		orderBy:    orderBy,
		searchCols: opts.SearchCols,
		logg:       logg,
	}
}

func (rc *Resource[T, P]) repo(r *http.Request) (*scope.Repository[T, P], error) {
	ident, err := requireIdentity(r)
	if err != nil {
		return nil, err
	}
	sc, err := scope.New(rc.dbc.DB(), ident.TenantID())
	if err != nil {
		return nil, err
	}
	return scope.NewRepository[T, P](sc), nil
}

// List pages through the collection; a q= term switches to search when the
// resource declares searchable columns.
func (rc *Resource[T, P]) List(w http.ResponseWriter, r *http.Request) {
	repo, err := rc.repo(r)
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}

	if term := r.URL.Query().Get("q"); term != "" && len(rc.searchCols) > 0 {
		rows, err := repo.Search(r.Context(), term, rc.searchCols...)
		if err != nil {
			responses.WriteError(r.Context(), rc.logg, w, err)
			return
		}
		params := pageParams(r).Normalize()
		responses.WriteSuccess(w, pagination.NewPage(rows, int64(len(rows)), params))
		return
	}

	page, err := repo.Paginate(r.Context(), pageParams(r), rc.orderBy)
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	responses.WriteSuccess(w, page)
}

func (rc *Resource[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	repo, err := rc.repo(r)
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	row, err := repo.Get(r.Context(), id)
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	responses.WriteSuccess(w, row)
}

func (rc *Resource[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	repo, err := rc.repo(r)
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	row := P(new(T))
	if err := validators.DecodeJSONBody(r, row); err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	if err := repo.Create(r.Context(), row); err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, row)
}

func (rc *Resource[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	repo, err := rc.repo(r)
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		responses.WriteError(r.Context(), rc.logg, w,
			pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
		return
	}
	affected, err := repo.Update(r.Context(), id, patch)
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	if affected == 0 {
		responses.WriteError(r.Context(), rc.logg, w,
			pkgerrors.New(pkgerrors.CodeNotFound, rc.name+" not found"))
		return
	}
	row, err := repo.Get(r.Context(), id)
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	responses.WriteSuccess(w, row)
}

func (rc *Resource[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	repo, err := rc.repo(r)
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	affected, err := repo.Delete(r.Context(), id)
	if err != nil {
		responses.WriteError(r.Context(), rc.logg, w, err)
		return
	}
	if affected == 0 {
		responses.WriteError(r.Context(), rc.logg, w,
			pkgerrors.New(pkgerrors.CodeNotFound, rc.name+" not found"))
		return
	}
	responses.WriteMessage(w, rc.name+" deleted")
}
