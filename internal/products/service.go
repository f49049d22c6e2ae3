package products

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ventia-app/ventia-backend/internal/scope"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
)

// ServiceParams wires the product catalog service.
type ServiceParams struct {
	DB   *db.Client
	Logg *logger.Logger
}

// Service owns the product catalog: CRUD, search, and the deletion rule
// that protects sale history.
type Service struct {
	db   *db.Client
	logg *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{db: params.DB, logg: params.Logg}
}

func (s *Service) repo(tenantID uuid.UUID) (*scope.Repository[models.Product, *models.Product], error) {
	sc, err := scope.New(s.db.DB(), tenantID)
	if err != nil {
		return nil, err
	}
	return scope.NewRepository[models.Product, *models.Product](sc), nil
}

// CreateInput is the payload for a new product.
type CreateInput struct {
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	SKU          string          `json:"sku"`
	Price        decimal.Decimal `json:"price" validate:"required"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Stock        int             `json:"stock" validate:"min=0"`
	MinStock     int             `json:"min_stock" validate:"min=0"`
	CategoryID   *uuid.UUID      `json:"category_id"`
	SupplierID   *uuid.UUID      `json:"supplier_id"`
	ImageURL     string          `json:"image_url"`
	StoreVisible *bool           `json:"store_visible"`
}

// UpdateInput is a partial product patch; nil fields are left untouched.
type UpdateInput struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	SKU          *string          `json:"sku"`
	Price        *decimal.Decimal `json:"price"`
	CostPrice    *decimal.Decimal `json:"cost_price"`
	Stock        *int             `json:"stock"`
	MinStock     *int             `json:"min_stock"`
	CategoryID   *uuid.UUID       `json:"category_id"`
	SupplierID   *uuid.UUID       `json:"supplier_id"`
	ImageURL     *string          `json:"image_url"`
	StoreVisible *bool            `json:"store_visible"`
}

func (in UpdateInput) patch() map[string]any {
	patch := map[string]any{}
	if in.Name != nil {
		patch["name"] = *in.Name
	}
	if in.Description != nil {
		patch["description"] = *in.Description
	}
	if in.SKU != nil {
		patch["sku"] = *in.SKU
	}
	if in.Price != nil {
		patch["price"] = *in.Price
	}
	if in.CostPrice != nil {
		patch["cost_price"] = *in.CostPrice
	}
	if in.Stock != nil {
		patch["stock"] = *in.Stock
	}
	if in.MinStock != nil {
		patch["min_stock"] = *in.MinStock
	}
	if in.CategoryID != nil {
		patch["category_id"] = *in.CategoryID
	}
	if in.SupplierID != nil {
		patch["supplier_id"] = *in.SupplierID
	}
	if in.ImageURL != nil {
		patch["image_url"] = *in.ImageURL
	}
	if in.StoreVisible != nil {
		patch["store_visible"] = *in.StoreVisible
	}
	return patch
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*models.Product, error) {
	if in.Price.IsNegative() || in.CostPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}
	repo, err := s.repo(tenantID)
	if err != nil {
		return nil, err
	}

	visible := true
	if in.StoreVisible != nil {
		visible = *in.StoreVisible
	}
	product := &models.Product{
		Name:         in.Name,
		Description:  in.Description,
		SKU:          in.SKU,
		Price:        in.Price,
		CostPrice:    in.CostPrice,
		Stock:        in.Stock,
		MinStock:     in.MinStock,
		CategoryID:   in.CategoryID,
		SupplierID:   in.SupplierID,
		ImageURL:     in.ImageURL,
		StoreVisible: visible,
	}
	if err := repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	repo, err := s.repo(tenantID)
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

// List returns one page of products; a non-empty term searches name and SKU
// instead.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, term string) (pagination.Page[*models.Product], error) {
	repo, err := s.repo(tenantID)
	if err != nil {
		return pagination.Page[*models.Product]{}, err
	}
	if term != "" {
		rows, err := repo.Search(ctx, term, "name", "sku")
		if err != nil {
			return pagination.Page[*models.Product]{}, err
		}
		return pagination.NewPage(rows, int64(len(rows)), params.Normalize()), nil
	}
	return repo.Paginate(ctx, params, "name ASC")
}

func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, in UpdateInput) (*models.Product, error) {
	if in.Price != nil && in.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	repo, err := s.repo(tenantID)
	if err != nil {
		return nil, err
	}
	affected, err := repo.Update(ctx, id, in.patch())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return repo.Get(ctx, id)
}

// Delete removes a product and its dependent rows. Products referenced by
// sale history cannot be deleted; the sale records must keep pointing at a
// real row.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	sc, err := scope.New(s.db.DB(), tenantID)
	if err != nil {
		return err
	}

	saleItems := scope.NewRepository[models.SaleItem, *models.SaleItem](sc)
	referenced, err := saleItems.Where(ctx, "product_id = ?", id)
	if err != nil {
		return err
	}
	if len(referenced) > 0 {
		return pkgerrors.New(pkgerrors.CodeBusinessRule, "product has sale history and cannot be deleted")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txScope := sc.WithTx(tx)

		if _, err := scope.NewRepository[models.InventoryMovement, *models.InventoryMovement](txScope).
			DeleteWhere(ctx, "product_id = ?", id); err != nil {
			return err
		}
		if _, err := scope.NewRepository[models.CartItem, *models.CartItem](txScope).
			DeleteWhere(ctx, "product_id = ?", id); err != nil {
			return err
		}
		if _, err := scope.NewRepository[models.PurchaseOrderItem, *models.PurchaseOrderItem](txScope).
			DeleteWhere(ctx, "product_id = ?", id); err != nil {
			return err
		}
		if _, err := scope.NewRepository[models.Offer, *models.Offer](txScope).
			DeleteWhere(ctx, "product_id = ?", id); err != nil {
			return err
		}
		if _, err := scope.NewRepository[models.StockAlert, *models.StockAlert](txScope).
			DeleteWhere(ctx, "product_id = ?", id); err != nil {
			return err
		}

		affected, err := scope.NewRepository[models.Product, *models.Product](txScope).Delete(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil
	})
}

// LowStock returns products at or below their minimum stock threshold.
func (s *Service) LowStock(ctx context.Context, tenantID uuid.UUID) ([]*models.Product, error) {
	repo, err := s.repo(tenantID)
	if err != nil {
		return nil, err
	}
	return repo.Where(ctx, "stock <= min_stock")
}
