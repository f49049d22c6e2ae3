package controllers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/ventia-app/ventia-backend/api/responses"
	"github.com/ventia-app/ventia-backend/api/validators"
	"github.com/ventia-app/ventia-backend/internal/scope"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/enums"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
	"github.com/google/uuid"
)

// InventoryMovements lists the movement log, newest first, optionally for
// one product.
func InventoryMovements(dbc *db.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := optionalID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pageParams(r).Normalize()

		q := dbc.DB().WithContext(r.Context()).
			Model(&models.InventoryMovement{}).
			Where("tenant_id = ?", ident.TenantID())
		if productID != nil {
			q = q.Where("product_id = ?", *productID)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count movements"))
			return
		}
		var rows []*models.InventoryMovement
		err = q.Order("created_at DESC").Limit(params.Limit).Offset(params.Offset).Find(&rows).Error
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list movements"))
			return
		}
		responses.WriteSuccess(w, pagination.NewPage(rows, total, params))
	}
}

type adjustmentRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required"`
	Reason    string    `json:"reason"`
}

// InventoryAdjust applies a manual stock correction and logs it as an
// adjustment movement. Negative corrections cannot push stock below zero.
func InventoryAdjust(dbc *db.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var in adjustmentRequest
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tenantID := ident.TenantID()
		sc, err := scope.New(dbc.DB(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var product *models.Product
		err = dbc.WithTx(r.Context(), func(tx *gorm.DB) error {
			txScope := sc.WithTx(tx)
			if _, err := scope.NewRepository[models.Product, *models.Product](txScope).Get(r.Context(), in.ProductID); err != nil {
				return err
			}
			res := tx.Model(&models.Product{}).
				Where("id = ? AND tenant_id = ? AND stock + ? >= 0", in.ProductID, tenantID, in.Quantity).
				Update("stock", gorm.Expr("stock + ?", in.Quantity))
			if res.Error != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "adjust stock")
			}
			if res.RowsAffected == 0 {
				return pkgerrors.New(pkgerrors.CodeBusinessRule, "adjustment would leave negative stock")
			}
			movement := &models.InventoryMovement{
				ProductID: in.ProductID,
				Type:      enums.MovementAdjustment,
				Quantity:  in.Quantity,
				Reference: in.Reason,
			}
			return scope.NewRepository[models.InventoryMovement, *models.InventoryMovement](txScope).
				Create(r.Context(), movement)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err = scope.NewRepository[models.Product, *models.Product](sc).Get(r.Context(), in.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
