package storefront

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ventia-app/ventia-backend/internal/sales"
	"github.com/ventia-app/ventia-backend/internal/scope"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/enums"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
	"github.com/ventia-app/ventia-backend/pkg/wompi"
)

// Confirmer verifies a gateway transaction under the optimistic policy.
type Confirmer interface {
	ConfirmTransaction(ctx context.Context, transactionID string) wompi.Confirmation
}

// ServiceParams wires the public storefront service.
type ServiceParams struct {
	DB    *db.Client
	Sales *sales.Service
	Wompi Confirmer
	Logg  *logger.Logger
}

// Service serves the unauthenticated storefront: catalog by store slug,
// carts, web orders, and the customer-facing payment status check.
type Service struct {
	db    *db.Client
	sales *sales.Service
	wompi Confirmer
	logg  *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{db: params.DB, sales: params.Sales, wompi: params.Wompi, logg: params.Logg}
}

// Store is the public storefront configuration.
type Store struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	WhatsApp string `json:"whatsapp"`
}

// resolveStore maps a slug to the owning profile. Disabled or unknown
// stores are indistinguishable: both are 404.
func (s *Service) resolveStore(ctx context.Context, slug string) (*models.UserProfile, error) {
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	var profile models.UserProfile
	err := s.db.DB().WithContext(ctx).
		Where("store_slug = ? AND store_enabled = ?", slug, true).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve store")
	}
	return &profile, nil
}

// GetStore returns the public configuration for a storefront.
func (s *Service) GetStore(ctx context.Context, slug string) (*Store, error) {
	profile, err := s.resolveStore(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &Store{Slug: slug, Name: profile.StoreName, WhatsApp: profile.StoreWhatsApp}, nil
}

// Products lists the store's visible catalog.
func (s *Service) Products(ctx context.Context, slug string, params pagination.Params, term string) (pagination.Page[*models.Product], error) {
	profile, err := s.resolveStore(ctx, slug)
	if err != nil {
		return pagination.Page[*models.Product]{}, err
	}
	params = params.Normalize()

	q := s.db.DB().WithContext(ctx).Model(&models.Product{}).
		Where("tenant_id = ? AND store_visible = ?", profile.ID, true)
	if term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return pagination.Page[*models.Product]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count products")
	}
	var rows []*models.Product
	if err := q.Order("name ASC").Limit(params.Limit).Offset(params.Offset).Find(&rows).Error; err != nil {
		return pagination.Page[*models.Product]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return pagination.NewPage(rows, total, params), nil
}

// Categories lists the store's categories.
func (s *Service) Categories(ctx context.Context, slug string) ([]*models.Category, error) {
	profile, err := s.resolveStore(ctx, slug)
	if err != nil {
		return nil, err
	}
	sc, err := scope.New(s.db.DB(), profile.ID)
	if err != nil {
		return nil, err
	}
	return scope.NewRepository[models.Category, *models.Category](sc).List(ctx, "name ASC")
}

// ShippingZones lists the store's active delivery areas.
func (s *Service) ShippingZones(ctx context.Context, slug string) ([]*models.ShippingZone, error) {
	profile, err := s.resolveStore(ctx, slug)
	if err != nil {
		return nil, err
	}
	sc, err := scope.New(s.db.DB(), profile.ID)
	if err != nil {
		return nil, err
	}
	return scope.NewRepository[models.ShippingZone, *models.ShippingZone](sc).Where(ctx, "active = ?", true)
}

// CartInput adds one line to an anonymous cart session.
type CartInput struct {
	SessionID     string    `json:"session_id" validate:"required"`
	ProductID     uuid.UUID `json:"product_id" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,min=1"`
	CustomerEmail string    `json:"customer_email" validate:"omitempty,email"`
}

// AddCartItem upserts a cart line for the session.
func (s *Service) AddCartItem(ctx context.Context, slug string, in CartInput) (*models.CartItem, error) {
	profile, err := s.resolveStore(ctx, slug)
	if err != nil {
		return nil, err
	}
	sc, err := scope.New(s.db.DB(), profile.ID)
	if err != nil {
		return nil, err
	}
	repo := scope.NewRepository[models.CartItem, *models.CartItem](sc)

	existing, err := repo.Where(ctx, "session_id = ? AND product_id = ?", in.SessionID, in.ProductID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		item := existing[0]
		if _, err := repo.Update(ctx, item.ID, map[string]any{
			"quantity":       in.Quantity,
			"customer_email": in.CustomerEmail,
		}); err != nil {
			return nil, err
		}
		return repo.Get(ctx, item.ID)
	}

	item := &models.CartItem{
		SessionID:     in.SessionID,
		ProductID:     in.ProductID,
		Quantity:      in.Quantity,
		CustomerEmail: in.CustomerEmail,
	}
	if err := repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Cart returns the session's cart lines.
func (s *Service) Cart(ctx context.Context, slug, sessionID string) ([]*models.CartItem, error) {
	profile, err := s.resolveStore(ctx, slug)
	if err != nil {
		return nil, err
	}
	sc, err := scope.New(s.db.DB(), profile.ID)
	if err != nil {
		return nil, err
	}
	return scope.NewRepository[models.CartItem, *models.CartItem](sc).
		Where(ctx, "session_id = ?", sessionID)
}

// OrderItemInput is one requested line on a web order.
type OrderItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// OrderInput is a storefront checkout payload.
type OrderInput struct {
	CustomerName   string           `json:"customer_name" validate:"required"`
	CustomerPhone  string           `json:"customer_phone" validate:"required"`
	DeliveryMethod string           `json:"delivery_method" validate:"required"`
	ShippingZoneID *uuid.UUID       `json:"shipping_zone_id"`
	SessionID      string           `json:"session_id"`
	Notes          string           `json:"notes"`
	Items          []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

// CreateOrder records a pending web order. Stock is not decremented here;
// that happens when the payment is confirmed.
func (s *Service) CreateOrder(ctx context.Context, slug string, in OrderInput) (*models.Sale, error) {
	if strings.TrimSpace(in.DeliveryMethod) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_method is required")
	}
	profile, err := s.resolveStore(ctx, slug)
	if err != nil {
		return nil, err
	}
	tenantID := profile.ID

	sc, err := scope.New(s.db.DB(), tenantID)
	if err != nil {
		return nil, err
	}

	var saleID uuid.UUID
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txScope := sc.WithTx(tx)
		products := scope.NewRepository[models.Product, *models.Product](txScope)

		number, err := sales.NextNumber(tx, tenantID, sales.PrefixWeb, time.Now())
		if err != nil {
			return err
		}

		saleID = uuid.New()
		subtotal := decimal.Zero
		items := make([]*models.SaleItem, 0, len(in.Items))
		for _, line := range in.Items {
			product, err := products.Get(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if !product.StoreVisible {
				return pkgerrors.New(pkgerrors.CodeBusinessRule, "product is not available in this store")
			}
			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			subtotal = subtotal.Add(lineTotal)
			items = append(items, &models.SaleItem{
				SaleID:      saleID,
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
				Subtotal:    lineTotal,
			})
		}

		shipping := decimal.Zero
		if in.ShippingZoneID != nil {
			zone, err := scope.NewRepository[models.ShippingZone, *models.ShippingZone](txScope).Get(ctx, *in.ShippingZoneID)
			if err != nil {
				return err
			}
			if !zone.Active {
				return pkgerrors.New(pkgerrors.CodeBusinessRule, "shipping zone is not available")
			}
			shipping = zone.Cost
		}

		sale := &models.Sale{
			ID:             saleID,
			TenantID:       tenantID,
			SaleNumber:     number,
			Origin:         enums.OriginWeb,
			Status:         enums.SalePending,
			PaymentMethod:  enums.MethodTransfer,
			Subtotal:       subtotal,
			ShippingCost:   shipping,
			Total:          subtotal.Add(shipping),
			AmountPending:  subtotal.Add(shipping),
			PaymentStatus:  enums.PaymentPending,
			CustomerName:   in.CustomerName,
			CustomerPhone:  in.CustomerPhone,
			DeliveryMethod: in.DeliveryMethod,
			Notes:          in.Notes,
		}
		if err := tx.Create(sale).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create web order")
		}
		if err := scope.NewRepository[models.SaleItem, *models.SaleItem](txScope).CreateBatch(ctx, items); err != nil {
			return err
		}

		if in.SessionID != "" {
			if _, err := scope.NewRepository[models.CartItem, *models.CartItem](txScope).
				DeleteWhere(ctx, "session_id = ?", in.SessionID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{"store": slug, "sale_id": saleID.String()})
		s.logg.Info(lctx, "web order received")
	}
	return s.sales.Get(ctx, tenantID, saleID)
}

// PaymentStatusResult is what the storefront shows the customer after a
// payment redirect.
type PaymentStatusResult struct {
	Sale     *models.Sale `json:"sale"`
	Status   string       `json:"status"`
	Verified bool         `json:"verified"`
}

// PaymentStatus applies the optimistic confirmation policy for a customer
// returning from the gateway: within the bounded wait the transaction is
// verified; otherwise the payment is assumed approved and reconciled later
// by the webhook. Approved (or assumed) payments complete the order.
func (s *Service) PaymentStatus(ctx context.Context, slug string, saleID uuid.UUID, transactionID string) (*PaymentStatusResult, error) {
	profile, err := s.resolveStore(ctx, slug)
	if err != nil {
		return nil, err
	}
	tenantID := profile.ID

	conf := wompi.Confirmation{Status: wompi.StatusApproved, Verified: false}
	if s.wompi != nil && transactionID != "" {
		conf = s.wompi.ConfirmTransaction(ctx, transactionID)
	}

	switch {
	case conf.Status == wompi.StatusApproved:
		note := "pago verificado: " + transactionID
		if !conf.Verified {
			note = "pago asumido aprobado sin verificacion: " + transactionID
		}
		sale, err := s.sales.ConfirmWebOrder(ctx, tenantID, saleID, note)
		if err != nil {
			return nil, err
		}
		return &PaymentStatusResult{Sale: sale, Status: conf.Status, Verified: conf.Verified}, nil

	case wompi.IsTerminalFailure(conf.Status):
		if err := s.sales.AnnotateWebOrder(ctx, tenantID, saleID, "pago rechazado: "+conf.Status); err != nil {
			return nil, err
		}
	}

	sale, err := s.sales.Get(ctx, tenantID, saleID)
	if err != nil {
		return nil, err
	}
	return &PaymentStatusResult{Sale: sale, Status: conf.Status, Verified: conf.Verified}, nil
}
