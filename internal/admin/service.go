package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ventia-app/ventia-backend/internal/tenants"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
)

// ServiceParams wires the superadmin service.
type ServiceParams struct {
	DB      *db.Client
	Tenants *tenants.Service
	Logg    *logger.Logger
}

// Service exposes the platform operator surface: account listings and the
// full account deletion cascade. Route access is gated on the superadmin
// flag before any of these are reached.
type Service struct {
	db      *db.Client
	tenants *tenants.Service
	logg    *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{db: params.DB, tenants: params.Tenants, logg: params.Logg}
}

// ListTenants pages through tenant records, newest first.
func (s *Service) ListTenants(ctx context.Context, params pagination.Params) (pagination.Page[*models.Tenant], error) {
	return s.tenants.List(ctx, params)
}

// ListUsers pages through user profiles, newest first.
func (s *Service) ListUsers(ctx context.Context, params pagination.Params) (pagination.Page[*models.UserProfile], error) {
	params = params.Normalize()

	var total int64
	q := s.db.DB().WithContext(ctx).Model(&models.UserProfile{})
	if err := q.Count(&total).Error; err != nil {
		return pagination.Page[*models.UserProfile]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count profiles")
	}
	var rows []*models.UserProfile
	err := q.Order("created_at DESC").Limit(params.Limit).Offset(params.Offset).Find(&rows).Error
	if err != nil {
		return pagination.Page[*models.UserProfile]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list profiles")
	}
	return pagination.NewPage(rows, total, params), nil
}

// GetUser fetches one profile by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.DB().WithContext(ctx).First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "get profile")
	}
	return &profile, nil
}

// cascadeOrder lists every tenant-scoped table, children before parents, so
// the per-table deletes never orphan a foreign key.
var cascadeOrder = []any{
	&models.CreditPayment{},
	&models.SaleItem{},
	&models.Sale{},
	&models.InventoryMovement{},
	&models.StockAlert{},
	&models.CartItem{},
	&models.PurchaseOrderItem{},
	&models.PurchaseOrder{},
	&models.Offer{},
	&models.Product{},
	&models.Category{},
	&models.Customer{},
	&models.Supplier{},
	&models.ShippingZone{},
	&models.TeamInvitation{},
	&models.PaymentTransaction{},
}

// DeleteUser removes an account and every row it owns. Operators cannot
// delete themselves or other superadmins. The cascade runs in one
// transaction; the tenant record and its cache entry go last.
func (s *Service) DeleteUser(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return pkgerrors.New(pkgerrors.CodeBusinessRule, "cannot delete your own account")
	}
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Superadmin {
		return pkgerrors.New(pkgerrors.CodeBusinessRule, "superadmin accounts cannot be deleted")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, model := range cascadeOrder {
			if err := tx.Where("tenant_id = ?", targetID).Delete(model).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cascade delete")
			}
		}
		if err := tx.Where("tenant_id = ?", targetID.String()).Delete(&models.SaleCounter{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete sale counter")
		}
		if err := tx.Where("id = ?", targetID).Delete(&models.UserProfile{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete profile")
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.tenants.DeleteByExternalID(ctx, target.ExternalID)
	if err != nil && pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		return err
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"deleted_user": targetID.String(),
			"actor":        actorID.String(),
		})
		s.logg.Info(lctx, "account deleted")
	}
	return nil
}
