package tenants

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/enums"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
)

// ServiceParams wires the tenant record store.
type ServiceParams struct {
	DB    *db.Client
	Cache Cache
	Logg  *logger.Logger
}

// Service is the durable lookup from external identity id to tenant record,
// fronted by the read-through cache.
type Service struct {
	db    *db.Client
	cache Cache
	logg  *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{db: params.DB, cache: params.Cache, logg: params.Logg}
}

// GetByExternalID resolves a tenant by its identity-provider subject,
// populating the cache on a miss.
func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*models.Tenant, error) {
	if externalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external id is required")
	}
	if s.cache != nil {
		if tenant, ok := s.cache.Get(ctx, externalID); ok {
			return tenant, nil
		}
	}

	var tenant models.Tenant
	err := s.db.DB().WithContext(ctx).Where("external_id = ?", externalID).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup tenant")
	}

	if s.cache != nil {
		s.cache.Set(ctx, externalID, &tenant)
	}
	return &tenant, nil
}

// GetByID fetches a tenant by primary key, bypassing the cache.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.DB().WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup tenant")
	}
	return &tenant, nil
}

// Ensure returns the tenant for an external identity, creating it with trial
// status on first sight. Concurrent first logins converge on one row: the
// loser of the unique-index race refetches the winner's insert.
func (s *Service) Ensure(ctx context.Context, externalID, email string) (*models.Tenant, bool, error) {
	tenant, err := s.GetByExternalID(ctx, externalID)
	if err == nil {
		return tenant, false, nil
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		return nil, false, err
	}

	fresh := &models.Tenant{
		ID:                 uuid.New(),
		ExternalID:         externalID,
		Email:              email,
		SubscriptionStatus: enums.SubscriptionTrial,
	}
	if err := s.db.DB().WithContext(ctx).Create(fresh).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, refetchErr := s.GetByExternalID(ctx, externalID)
			if refetchErr != nil {
				return nil, false, refetchErr
			}
			return existing, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create tenant")
	}

	if s.cache != nil {
		s.cache.Set(ctx, externalID, fresh)
	}
	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{"tenant_id": fresh.ID.String()})
		s.logg.Info(lctx, "tenant provisioned")
	}
	return fresh, true, nil
}

// UpdateSubscriptionStatus stamps a new status and evicts the cached entry
// so gating sees the transition promptly.
func (s *Service) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status enums.SubscriptionStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription status")
	}
	tenant, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.db.DB().WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", id).
		Update("subscription_status", status).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update subscription status")
	}
	if s.cache != nil {
		s.cache.Delete(ctx, tenant.ExternalID)
	}
	return nil
}

// Delete removes a tenant row and evicts its cache entry. Used only by the
// superadmin cascade.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tenant, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	res := s.db.DB().WithContext(ctx).Where("id = ?", id).Delete(&models.Tenant{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "delete tenant")
	}
	if s.cache != nil {
		s.cache.Delete(ctx, tenant.ExternalID)
	}
	return nil
}

// DeleteByExternalID removes the tenant row matching an identity subject,
// tolerating absence.
func (s *Service) DeleteByExternalID(ctx context.Context, externalID string) error {
	res := s.db.DB().WithContext(ctx).Where("external_id = ?", externalID).Delete(&models.Tenant{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "delete tenant")
	}
	if s.cache != nil {
		s.cache.Delete(ctx, externalID)
	}
	return nil
}

// List returns tenants ordered by creation, newest first.
func (s *Service) List(ctx context.Context, params pagination.Params) (pagination.Page[*models.Tenant], error) {
	params = params.Normalize()

	var total int64
	if err := s.db.DB().WithContext(ctx).Model(&models.Tenant{}).Count(&total).Error; err != nil {
		return pagination.Page[*models.Tenant]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count tenants")
	}

	var rows []*models.Tenant
	err := s.db.DB().WithContext(ctx).
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error
	if err != nil {
		return pagination.Page[*models.Tenant]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tenants")
	}
	return pagination.NewPage(rows, total, params), nil
}
