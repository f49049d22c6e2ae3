package purchasing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ventia-app/ventia-backend/internal/scope"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/enums"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
)

// ServiceParams wires the purchasing service.
type ServiceParams struct {
	DB   *db.Client
	Logg *logger.Logger
}

// Service manages supplier purchase orders and their reception into stock.
type Service struct {
	db   *db.Client
	logg *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{db: params.DB, logg: params.Logg}
}

// ItemInput is one requested line on a purchase order.
type ItemInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	UnitCost  decimal.Decimal `json:"unit_cost" validate:"required"`
}

// CreateInput is the payload for a new purchase order.
type CreateInput struct {
	SupplierID *uuid.UUID  `json:"supplier_id"`
	Notes      string      `json:"notes"`
	Items      []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// Create opens a pending purchase order.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*models.PurchaseOrder, error) {
	sc, err := scope.New(s.db.DB(), tenantID)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	total := decimal.Zero
	items := make([]*models.PurchaseOrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		if line.UnitCost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
		}
		total = total.Add(line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, &models.PurchaseOrderItem{
			PurchaseOrderID: orderID,
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			UnitCost:        line.UnitCost,
		})
	}

	order := &models.PurchaseOrder{
		ID:         orderID,
		TenantID:   tenantID,
		SupplierID: in.SupplierID,
		Status:     enums.PurchasePending,
		Total:      total,
		Notes:      in.Notes,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txScope := sc.WithTx(tx)
		if err := tx.Create(order).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create purchase order")
		}
		return scope.NewRepository[models.PurchaseOrderItem, *models.PurchaseOrderItem](txScope).CreateBatch(ctx, items)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, orderID)
}

// Get fetches an order with its lines.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := s.db.DB().WithContext(ctx).
		Preload("Items").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "get purchase order")
	}
	return &order, nil
}

// List returns one page of orders, newest first, optionally by status.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, status enums.PurchaseOrderStatus) (pagination.Page[*models.PurchaseOrder], error) {
	params = params.Normalize()

	q := s.db.DB().WithContext(ctx).Model(&models.PurchaseOrder{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return pagination.Page[*models.PurchaseOrder]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count purchase orders")
	}
	var rows []*models.PurchaseOrder
	err := q.Preload("Items").Order("created_at DESC").Limit(params.Limit).Offset(params.Offset).Find(&rows).Error
	if err != nil {
		return pagination.Page[*models.PurchaseOrder]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchase orders")
	}
	return pagination.NewPage(rows, total, params), nil
}

// Receive books a pending order into inventory: stock goes up, the product
// cost price follows the order's unit cost, and the movement log records the
// intake. The whole reception is one transaction.
func (s *Service) Receive(ctx context.Context, tenantID, id uuid.UUID) (*models.PurchaseOrder, error) {
	order, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.PurchasePending {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "only pending orders can be received")
	}

	sc, err := scope.New(s.db.DB(), tenantID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txScope := sc.WithTx(tx)
		movements := scope.NewRepository[models.InventoryMovement, *models.InventoryMovement](txScope)

		for _, item := range order.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND tenant_id = ?", item.ProductID, tenantID).
				Updates(map[string]any{
					"stock":      gorm.Expr("stock + ?", item.Quantity),
					"cost_price": item.UnitCost,
				})
			if res.Error != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "restock product")
			}
			if res.RowsAffected == 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ordered product no longer exists")
			}

			movement := &models.InventoryMovement{
				ProductID: item.ProductID,
				Type:      enums.MovementPurchase,
				Quantity:  item.Quantity,
				Reference: order.ID.String(),
			}
			if err := movements.Create(ctx, movement); err != nil {
				return err
			}
		}

		now := time.Now()
		err := tx.Model(&models.PurchaseOrder{}).
			Where("id = ? AND tenant_id = ?", id, tenantID).
			Updates(map[string]any{
				"status":      enums.PurchaseReceived,
				"received_at": now,
			}).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order received")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, id)
}

// Cancel voids a pending order.
func (s *Service) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*models.PurchaseOrder, error) {
	order, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.PurchasePending {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "only pending orders can be cancelled")
	}
	err = s.db.DB().WithContext(ctx).Model(&models.PurchaseOrder{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("status", enums.PurchaseCanceled).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
	}
	return s.Get(ctx, tenantID, id)
}

// Delete removes an order that never touched stock.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	order, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if order.Status == enums.PurchaseReceived {
		return pkgerrors.New(pkgerrors.CodeBusinessRule, "received orders cannot be deleted")
	}

	sc, err := scope.New(s.db.DB(), tenantID)
	if err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txScope := sc.WithTx(tx)
		if _, err := scope.NewRepository[models.PurchaseOrderItem, *models.PurchaseOrderItem](txScope).
			DeleteWhere(ctx, "purchase_order_id = ?", id); err != nil {
			return err
		}
		affected, err := scope.NewRepository[models.PurchaseOrder, *models.PurchaseOrder](txScope).Delete(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		return nil
	})
}
