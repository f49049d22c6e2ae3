package scope

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
)

// TenantOwned is implemented by every model that carries the tenant-scoping
// column. TenantRef and IDRef return writable references so the accessor can
// stamp both on insert.
type TenantOwned interface {
	IDRef() *uuid.UUID
	TenantRef() *uuid.UUID
}

// Scope binds a database handle to a single tenant. Every accessor built on
// it filters and stamps the tenant-scoping column; nothing reachable through
// a Scope can touch another tenant's rows.
type Scope struct {
	db       *gorm.DB
	tenantID uuid.UUID
}

// New binds db to tenantID. A nil tenant id is refused outright so a missing
// identity can never widen a query.
func New(db *gorm.DB, tenantID uuid.UUID) (*Scope, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "scope requires a database handle")
	}
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant scope")
	}
	return &Scope{db: db, tenantID: tenantID}, nil
}

// TenantID returns the bound scoping key.
func (s *Scope) TenantID() uuid.UUID {
	return s.tenantID
}

// WithTx rebinds the scope to a transaction handle. Used by services that
// run multi-step mutations inside db.Client.WithTx.
func (s *Scope) WithTx(tx *gorm.DB) *Scope {
	return &Scope{db: tx, tenantID: s.tenantID}
}
