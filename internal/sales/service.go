package sales

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

// ServiceParams wires the sales service.
type ServiceParams struct {
	DB   *db.Client
	Logg *logger.Logger
}

// Service owns point-of-sale transactions: numbered sales, line items,
// guarded stock decrements, credit bookkeeping, and the audit trail.
type Service struct {
	db   *db.Client
	logg *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{db: params.DB, logg: params.Logg}
}

// ItemInput is one requested line on a new sale.
type ItemInput struct {
	ProductID       uuid.UUID       `json:"product_id" validate:"required"`
	Quantity        int             `json:"quantity" validate:"required,min=1"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// CreateInput is the payload for a new in-person sale.
type CreateInput struct {
	CustomerID    *uuid.UUID          `json:"customer_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	Discount      decimal.Decimal     `json:"discount"`
	DueDate       *time.Time          `json:"due_date"`
	Notes         string              `json:"notes"`
	Items         []ItemInput         `json:"items" validate:"required,min=1,dive"`
}

// pointsFor converts a fully collected sale total into loyalty points.
func pointsFor(total decimal.Decimal) int {
	return int(total.Div(decimal.NewFromInt(1000)).IntPart())
}

// Create records an in-person sale: reserves the tenant's next VTA number,
// decrements stock per line with a guard against going negative, writes the
// inventory movements, and settles payment bookkeeping. Credit sales open a
// pending balance on the customer.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*models.Sale, error) {
	switch in.PaymentMethod {
	case enums.MethodCash, enums.MethodCard, enums.MethodTransfer:
	case enums.MethodCredit:
		if in.CustomerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit sales require a customer")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if in.Discount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}

	sc, err := scope.New(s.db.DB(), tenantID)
	if err != nil {
		return nil, err
	}

	var sale *models.Sale
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txScope := sc.WithTx(tx)
		now := time.Now()

		number, err := NextNumber(tx, tenantID, PrefixPOS, now)
		if err != nil {
			return err
		}

		saleID := uuid.New()
		subtotal := decimal.Zero
		items := make([]*models.SaleItem, 0, len(in.Items))
		for _, line := range in.Items {
			item, err := buildLine(ctx, txScope, tx, tenantID, saleID, number, line)
			if err != nil {
				return err
			}
			subtotal = subtotal.Add(item.Subtotal)
			items = append(items, item)
		}

		total := subtotal.Sub(in.Discount)
		if total.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds subtotal")
		}

		sale = &models.Sale{
			ID:            saleID,
			TenantID:      tenantID,
			SaleNumber:    number,
			CustomerID:    in.CustomerID,
			Origin:        enums.OriginPOS,
			Status:        enums.SaleCompleted,
			PaymentMethod: in.PaymentMethod,
			Subtotal:      subtotal,
			Discount:      in.Discount,
			Total:         total,
			DueDate:       in.DueDate,
			Notes:         in.Notes,
		}
		if in.PaymentMethod == enums.MethodCredit {
			sale.PaymentStatus = enums.PaymentPending
			sale.AmountPaid = decimal.Zero
			sale.AmountPending = total
		} else {
			sale.PaymentStatus = enums.PaymentPaid
			sale.AmountPaid = total
			sale.AmountPending = decimal.Zero
		}

		if err := tx.Create(sale).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create sale")
		}
		if err := scope.NewRepository[models.SaleItem, *models.SaleItem](txScope).CreateBatch(ctx, items); err != nil {
			return err
		}

		if in.CustomerID != nil {
			if err := s.settleCustomer(ctx, tx, tenantID, *in.CustomerID, sale); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{"sale_number": sale.SaleNumber, "total": sale.Total.String()})
		s.logg.Info(lctx, "sale recorded")
	}
	return s.Get(ctx, tenantID, sale.ID)
}

// buildLine validates one line, decrements stock with a non-negative guard,
// and writes the movement log entry.
func buildLine(ctx context.Context, txScope *scope.Scope, tx *gorm.DB, tenantID, saleID uuid.UUID, number string, line ItemInput) (*models.SaleItem, error) {
	if line.DiscountPercent.IsNegative() || line.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line discount must be between 0 and 100")
	}

	products := scope.NewRepository[models.Product, *models.Product](txScope)
	product, err := products.Get(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}

	res := tx.Model(&models.Product{}).
		Where("id = ? AND tenant_id = ? AND stock >= ?", line.ProductID, tenantID, line.Quantity).
		Update("stock", gorm.Expr("stock - ?", line.Quantity))
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "insufficient stock for "+product.Name)
	}

	movement := &models.InventoryMovement{
		ProductID: line.ProductID,
		Type:      enums.MovementSale,
		Quantity:  -line.Quantity,
		Reference: number,
	}
	if err := scope.NewRepository[models.InventoryMovement, *models.InventoryMovement](txScope).Create(ctx, movement); err != nil {
		return nil, err
	}

	unit := product.Price
	lineTotal := unit.Mul(decimal.NewFromInt(int64(line.Quantity)))
	if line.DiscountPercent.IsPositive() {
		factor := decimal.NewFromInt(100).Sub(line.DiscountPercent).Div(decimal.NewFromInt(100))
		lineTotal = lineTotal.Mul(factor).Round(2)
	}

	return &models.SaleItem{
		SaleID:          saleID,
		ProductID:       line.ProductID,
		ProductName:     product.Name,
		Quantity:        line.Quantity,
		UnitPrice:       unit,
		DiscountPercent: line.DiscountPercent,
		Subtotal:        lineTotal,
	}, nil
}

// settleCustomer applies debt and loyalty effects of a new sale.
func (s *Service) settleCustomer(ctx context.Context, tx *gorm.DB, tenantID, customerID uuid.UUID, sale *models.Sale) error {
	q := tx.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ? AND tenant_id = ?", customerID, tenantID)

	if sale.PaymentMethod == enums.MethodCredit {
		res := q.Update("debt", gorm.Expr("debt + ?", sale.Total))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update customer debt")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil
	}

	points := pointsFor(sale.Total)
	if points == 0 {
		return nil
	}
	res := q.Update("points", gorm.Expr("points + ?", points))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update customer points")
	}
	return nil
}

// Get fetches a sale with its line items.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.DB().WithContext(ctx).
		Preload("Items").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "get sale")
	}
	return &sale, nil
}

// ListFilter narrows a sale listing.
type ListFilter struct {
	Status        enums.SaleStatus
	Origin        enums.SaleOrigin
	PaymentStatus enums.PaymentStatus
	CustomerID    *uuid.UUID
}

// List returns one page of sales, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filter ListFilter) (pagination.Page[*models.Sale], error) {
	params = params.Normalize()

	q := s.db.DB().WithContext(ctx).Model(&models.Sale{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Origin != "" {
		q = q.Where("origin = ?", filter.Origin)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return pagination.Page[*models.Sale]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count sales")
	}

	var rows []*models.Sale
	err := q.Preload("Items").
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error
	if err != nil {
		return pagination.Page[*models.Sale]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sales")
	}
	return pagination.NewPage(rows, total, params), nil
}

// UpdateNotes patches the free-text notes on a sale.
func (s *Service) UpdateNotes(ctx context.Context, tenantID, id uuid.UUID, notes string) (*models.Sale, error) {
	res := s.db.DB().WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("notes", notes)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update sale")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	return s.Get(ctx, tenantID, id)
}

// Cancel voids a sale: restocks every line, reverses open customer debt,
// and marks the sale cancelled. Already cancelled sales are refused.
func (s *Service) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*models.Sale, error) {
	sale, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if sale.Status == enums.SaleCanceled {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "sale is already cancelled")
	}

	sc, err := scope.New(s.db.DB(), tenantID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txScope := sc.WithTx(tx)
		movements := scope.NewRepository[models.InventoryMovement, *models.InventoryMovement](txScope)

		// Web orders only decrement stock once confirmed; a pending web
		// order has nothing to restock.
		restock := sale.Status == enums.SaleCompleted
		if restock {
			for _, item := range sale.Items {
				res := tx.Model(&models.Product{}).
					Where("id = ? AND tenant_id = ?", item.ProductID, tenantID).
					Update("stock", gorm.Expr("stock + ?", item.Quantity))
				if res.Error != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "restock product")
				}
				movement := &models.InventoryMovement{
					ProductID: item.ProductID,
					Type:      enums.MovementAdjustment,
					Quantity:  item.Quantity,
					Reference: sale.SaleNumber,
				}
				if err := movements.Create(ctx, movement); err != nil {
					return err
				}
			}
		}

		if sale.CustomerID != nil && sale.AmountPending.IsPositive() {
			res := tx.Model(&models.Customer{}).
				Where("id = ? AND tenant_id = ?", *sale.CustomerID, tenantID).
				Update("debt", gorm.Expr("debt - ?", sale.AmountPending))
			if res.Error != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "reverse customer debt")
			}
		}

		res := tx.Model(&models.Sale{}).
			Where("id = ? AND tenant_id = ?", id, tenantID).
			Updates(map[string]any{
				"status":         enums.SaleCanceled,
				"amount_pending": decimal.Zero,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "cancel sale")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, id)
}

// ConfirmWebOrder settles a pending storefront order after its payment was
// approved: stock is decremented per line with the non-negative guard, the
// movement log is written, and the sale flips to completed/paid. Confirming
// an already completed order is a no-op so gateway retries stay safe.
func (s *Service) ConfirmWebOrder(ctx context.Context, tenantID, id uuid.UUID, note string) (*models.Sale, error) {
	sale, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if sale.Origin != enums.OriginWeb {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "only web orders can be confirmed")
	}
	if sale.Status == enums.SaleCompleted {
		return sale, nil
	}
	if sale.Status == enums.SaleCanceled {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "cancelled orders cannot be confirmed")
	}

	sc, err := scope.New(s.db.DB(), tenantID)
	if err != nil {
		return nil, err
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txScope := sc.WithTx(tx)
		movements := scope.NewRepository[models.InventoryMovement, *models.InventoryMovement](txScope)

		for _, item := range sale.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND tenant_id = ? AND stock >= ?", item.ProductID, tenantID, item.Quantity).
				Update("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement stock")
			}
			if res.RowsAffected == 0 {
				return pkgerrors.New(pkgerrors.CodeBusinessRule, "insufficient stock for "+item.ProductName)
			}
			movement := &models.InventoryMovement{
				ProductID: item.ProductID,
				Type:      enums.MovementSale,
				Quantity:  -item.Quantity,
				Reference: sale.SaleNumber,
			}
			if err := movements.Create(ctx, movement); err != nil {
				return err
			}
		}

		notes := sale.Notes
		if note != "" {
			if notes != "" {
				notes += "\n"
			}
			notes += note
		}
		err := tx.Model(&models.Sale{}).
			Where("id = ? AND tenant_id = ?", id, tenantID).
			Updates(map[string]any{
				"status":         enums.SaleCompleted,
				"payment_status": enums.PaymentPaid,
				"amount_paid":    sale.Total,
				"amount_pending": decimal.Zero,
				"notes":          notes,
			}).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete web order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, id)
}

// AnnotateWebOrder appends a reconciliation note to a pending order without
// changing its state. Used for declined or errored payment events.
func (s *Service) AnnotateWebOrder(ctx context.Context, tenantID, id uuid.UUID, note string) error {
	sale, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	notes := sale.Notes
	if notes != "" {
		notes += "\n"
	}
	notes += note
	res := s.db.DB().WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("notes", notes)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "annotate sale")
	}
	return nil
}

// Summary aggregates completed sales inside a window. Feeds the daily
// report email.
type Summary struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func (s *Service) Summarize(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (Summary, error) {
	var out struct {
		Count int64
		Total decimal.NullDecimal
	}
	err := s.db.DB().WithContext(ctx).Model(&models.Sale{}).
		Select("COUNT(*) AS count, SUM(total) AS total").
		Where("tenant_id = ? AND status = ? AND created_at >= ? AND created_at < ?",
			tenantID, enums.SaleCompleted, from, to).
		Scan(&out).Error
	if err != nil {
		return Summary{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarize sales")
	}
	total := decimal.Zero
	if out.Total.Valid {
		total = out.Total.Decimal
	}
	return Summary{Count: out.Count, Total: total}, nil
}
