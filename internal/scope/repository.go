package scope

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ventia-app/ventia-backend/pkg/db"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
)

// Repository is the generic tenant-scoped accessor over one model. T is the
// model struct; P is its pointer type carrying the TenantOwned methods.
// Every read ANDs `tenant_id = ?` and every insert overwrites the row's
// tenant id with the bound scope, so callers cannot smuggle foreign rows in
// or out.
type Repository[T any, P interface {
	*T
	TenantOwned
}] struct {
	scope *Scope
}

// NewRepository builds the accessor for one model under the given scope.
func NewRepository[T any, P interface {
	*T
	TenantOwned
}](s *Scope) *Repository[T, P] {
	return &Repository[T, P]{scope: s}
}

// WithTx rebinds the repository to a transaction handle.
func (r *Repository[T, P]) WithTx(tx *gorm.DB) *Repository[T, P] {
	return &Repository[T, P]{scope: r.scope.WithTx(tx)}
}

// Scope exposes the underlying tenant binding.
func (r *Repository[T, P]) Scope() *Scope {
	return r.scope
}

func (r *Repository[T, P]) query(ctx context.Context) *gorm.DB {
	return r.scope.db.WithContext(ctx).Model(new(T)).Where("tenant_id = ?", r.scope.tenantID)
}

// Create inserts one row, stamping the scope's tenant id and generating the
// primary key when the caller left it empty.
func (r *Repository[T, P]) Create(ctx context.Context, row P) error {
	if row == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "nil row")
	}
	if *row.IDRef() == uuid.Nil {
		*row.IDRef() = uuid.New()
	}
	*row.TenantRef() = r.scope.tenantID
	if err := r.scope.db.WithContext(ctx).Create(row).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "record already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create record")
	}
	return nil
}

// CreateBatch inserts all rows atomically.
func (r *Repository[T, P]) CreateBatch(ctx context.Context, rows []P) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if *row.IDRef() == uuid.Nil {
			*row.IDRef() = uuid.New()
		}
		*row.TenantRef() = r.scope.tenantID
	}
	err := r.scope.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create records")
	}
	return nil
}

// Get fetches one row by id within the tenant. Rows owned by other tenants
// are indistinguishable from absent ones.
func (r *Repository[T, P]) Get(ctx context.Context, id uuid.UUID) (P, error) {
	row := P(new(T))
	err := r.query(ctx).Where("id = ?", id).First(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "record not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "get record")
	}
	return row, nil
}

// First fetches the first row matching the condition within the tenant.
func (r *Repository[T, P]) First(ctx context.Context, query string, args ...any) (P, error) {
	row := P(new(T))
	err := r.query(ctx).Where(query, args...).First(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "record not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "get record")
	}
	return row, nil
}

// List returns all tenant rows in the given order.
func (r *Repository[T, P]) List(ctx context.Context, orderBy string) ([]P, error) {
	q := r.query(ctx)
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	var rows []P
	if err := q.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list records")
	}
	return rows, nil
}

// Where returns tenant rows matching the condition.
func (r *Repository[T, P]) Where(ctx context.Context, query string, args ...any) ([]P, error) {
	var rows []P
	if err := r.query(ctx).Where(query, args...).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query records")
	}
	return rows, nil
}

// Count returns the number of tenant rows.
func (r *Repository[T, P]) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.query(ctx).Count(&total).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count records")
	}
	return total, nil
}

// Update applies a partial update to one row. The scoping and identity
// columns are stripped from the patch so a caller can never move a row
// across tenants. Returns the number of rows touched; zero means the row is
// absent or foreign.
func (r *Repository[T, P]) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	patch := make(map[string]any, len(updates))
	for k, v := range updates {
		switch strings.ToLower(k) {
		case "id", "tenant_id", "created_at":
			continue
		}
		patch[k] = v
	}
	if len(patch) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields provided")
	}
	res := r.query(ctx).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error, "") {
			return 0, pkgerrors.Wrap(pkgerrors.CodeConflict, res.Error, "record already exists")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update record")
	}
	return res.RowsAffected, nil
}

// Delete removes one row by id. Deleting an absent or foreign row is a
// no-op reported through the affected count.
func (r *Repository[T, P]) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.query(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "delete record")
	}
	return res.RowsAffected, nil
}

// DeleteWhere removes all tenant rows matching the condition.
func (r *Repository[T, P]) DeleteWhere(ctx context.Context, query string, args ...any) (int64, error) {
	res := r.query(ctx).Where(query, args...).Delete(new(T))
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "delete records")
	}
	return res.RowsAffected, nil
}

// Search returns tenant rows whose listed columns contain the term,
// case-insensitively. Uses LOWER/LIKE so the same query runs on postgres
// and the sqlite test driver.
func (r *Repository[T, P]) Search(ctx context.Context, term string, columns ...string) ([]P, error) {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return r.List(ctx, "")
	}
	pattern := "%" + strings.ToLower(term) + "%"
	conditions := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, col := range columns {
		conditions = append(conditions, "LOWER("+col+") LIKE ?")
		args = append(args, pattern)
	}
	var rows []P
	err := r.query(ctx).Where(strings.Join(conditions, " OR "), args...).Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search records")
	}
	return rows, nil
}

// Paginate returns one page of tenant rows plus the unfiltered tenant total.
func (r *Repository[T, P]) Paginate(ctx context.Context, params pagination.Params, orderBy string) (pagination.Page[P], error) {
	params = params.Normalize()

	var total int64
	if err := r.query(ctx).Count(&total).Error; err != nil {
		return pagination.Page[P]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count records")
	}

	q := r.query(ctx)
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	var rows []P
	if err := q.Limit(params.Limit).Offset(params.Offset).Find(&rows).Error; err != nil {
		return pagination.Page[P]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list records")
	}
	return pagination.NewPage(rows, total, params), nil
}
