package reconciler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ventia-app/ventia-backend/internal/sales"
	"github.com/ventia-app/ventia-backend/internal/tenants"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/enums"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/wompi"
)

// Locker is the replay guard. A nil locker disables the fast path and the
// reconciler falls back on its idempotent handlers alone.
type Locker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

// ServiceParams wires the webhook reconciler.
type ServiceParams struct {
	DB      *db.Client
	Sales   *sales.Service
	Tenants *tenants.Service
	Locker  Locker
	Logg    *logger.Logger
}

// Service settles gateway webhook events against the local state: web
// orders created under the optimistic confirmation policy and subscription
// or addon purchases made through payment links.
type Service struct {
	db      *db.Client
	sales   *sales.Service
	tenants *tenants.Service
	locker  Locker
	logg    *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{
		db:      params.DB,
		sales:   params.Sales,
		tenants: params.Tenants,
		locker:  params.Locker,
		logg:    params.Logg,
	}
}

const (
	replayGuardTTL = 24 * time.Hour
	billingPeriod  = 30 * 24 * time.Hour
)

// Process handles one webhook delivery. Events the reconciler does not
// recognize are acknowledged without side effects so the gateway stops
// retrying them; only infrastructure failures surface as errors.
func (s *Service) Process(ctx context.Context, event wompi.Event) error {
	if event.Event != wompi.EventTransactionUpdated {
		s.info(ctx, "ignoring webhook event", map[string]any{"event": event.Event})
		return nil
	}
	tx := event.Data.Transaction
	if tx.ID == "" {
		s.info(ctx, "webhook without transaction id", nil)
		return nil
	}

	if s.locker != nil {
		key := "wompi:event:" + tx.ID + ":" + tx.Status
		fresh, err := s.locker.SetNX(ctx, key, 1, replayGuardTTL)
		if err != nil {
			s.warn(ctx, "replay guard unavailable", err)
		} else if !fresh {
			s.info(ctx, "duplicate webhook delivery", map[string]any{"transaction_id": tx.ID})
			return nil
		}
	}

	txType, refID, ok := parseReference(tx.Reference)
	if !ok {
		s.info(ctx, "unrecognized payment reference", map[string]any{"reference": tx.Reference})
		return nil
	}

	switch txType {
	case enums.TransactionWebOrder:
		return s.reconcileWebOrder(ctx, refID, tx)
	default:
		return s.reconcileSubscription(ctx, txType, refID, tx)
	}
}

// parseReference splits a payment reference into its transaction type and
// entity id. References are SUB-<profile>, ADDON-<profile> or
// ORDER-<sale>; a bare uuid is treated as a web order for older links.
func parseReference(reference string) (enums.TransactionType, uuid.UUID, bool) {
	typ := enums.TransactionWebOrder
	raw := reference
	if prefix, rest, found := strings.Cut(reference, "-"); found && len(prefix) <= 5 {
		switch enums.TransactionType(prefix) {
		case enums.TransactionSubscription:
			typ, raw = enums.TransactionSubscription, rest
		case enums.TransactionAddon:
			typ, raw = enums.TransactionAddon, rest
		case enums.TransactionWebOrder:
			typ, raw = enums.TransactionWebOrder, rest
		}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", uuid.Nil, false
	}
	return typ, id, true
}

func (s *Service) reconcileWebOrder(ctx context.Context, saleID uuid.UUID, tx wompi.Transaction) error {
	var sale models.Sale
	err := s.db.DB().WithContext(ctx).First(&sale, "id = ?", saleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.info(ctx, "webhook for unknown order", map[string]any{"sale_id": saleID.String()})
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}

	if err := s.recordTransaction(ctx, sale.TenantID, enums.TransactionWebOrder, tx); err != nil {
		return err
	}

	switch {
	case tx.Status == wompi.StatusApproved:
		_, err := s.sales.ConfirmWebOrder(ctx, sale.TenantID, saleID, "pago confirmado por webhook: "+tx.ID)
		return err
	case wompi.IsTerminalFailure(tx.Status):
		return s.sales.AnnotateWebOrder(ctx, sale.TenantID, saleID, "pago "+tx.Status+" segun webhook: "+tx.ID)
	}
	return nil
}

func (s *Service) reconcileSubscription(ctx context.Context, txType enums.TransactionType, profileID uuid.UUID, tx wompi.Transaction) error {
	var profile models.UserProfile
	err := s.db.DB().WithContext(ctx).First(&profile, "id = ?", profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.info(ctx, "webhook for unknown account", map[string]any{"profile_id": profileID.String()})
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
	}

	if err := s.recordTransaction(ctx, profile.ID, txType, tx); err != nil {
		return err
	}

	switch {
	case tx.Status == wompi.StatusApproved && txType == enums.TransactionAddon:
		err := s.db.DB().WithContext(ctx).Model(&models.UserProfile{}).
			Where("id = ?", profile.ID).
			Update("storefront_addon", true).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate addon")
		}
		return nil

	case tx.Status == wompi.StatusApproved:
		nextBilling := time.Now().Add(billingPeriod)
		err := s.db.DB().WithContext(ctx).Model(&models.UserProfile{}).
			Where("id = ?", profile.ID).
			Updates(map[string]any{
				"subscription_status": enums.SubscriptionActive,
				"trial_ends_at":       nil,
				"next_billing_at":     nextBilling,
			}).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate subscription")
		}
		return s.mirrorTenantStatus(ctx, profile.ExternalID, enums.SubscriptionActive)

	case wompi.IsTerminalFailure(tx.Status) && txType == enums.TransactionSubscription:
		err := s.db.DB().WithContext(ctx).Model(&models.UserProfile{}).
			Where("id = ?", profile.ID).
			Update("subscription_status", enums.SubscriptionExpired).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "expire subscription")
		}
		return s.mirrorTenantStatus(ctx, profile.ExternalID, enums.SubscriptionExpired)
	}
	return nil
}

// mirrorTenantStatus keeps the tenant record in step with the profile and
// evicts the tenant cache so the next request sees the new status.
func (s *Service) mirrorTenantStatus(ctx context.Context, externalID string, status enums.SubscriptionStatus) error {
	tenant, err := s.tenants.GetByExternalID(ctx, externalID)
	if pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return s.tenants.UpdateSubscriptionStatus(ctx, tenant.ID, status)
}

// recordTransaction upserts the gateway log row keyed by transaction id.
// Redeliveries with a new status update the row in place.
func (s *Service) recordTransaction(ctx context.Context, tenantID uuid.UUID, txType enums.TransactionType, tx wompi.Transaction) error {
	amount := decimal.NewFromInt(tx.AmountInCents).Div(decimal.NewFromInt(100))

	var existing models.PaymentTransaction
	err := s.db.DB().WithContext(ctx).
		First(&existing, "gateway_transaction_id = ?", tx.ID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := &models.PaymentTransaction{
			ID:                   uuid.New(),
			TenantID:             tenantID,
			GatewayTransactionID: tx.ID,
			Reference:            tx.Reference,
			Type:                 txType,
			Status:               tx.Status,
			Amount:               amount,
		}
		if err := s.db.DB().WithContext(ctx).Create(row).Error; err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record transaction")
		}
		return nil
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transaction log")
	}

	if existing.Status == tx.Status {
		return nil
	}
	err = s.db.DB().WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("gateway_transaction_id = ?", tx.ID).
		Update("status", tx.Status).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update transaction log")
	}
	return nil
}

func (s *Service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	if fields != nil {
		ctx = s.logg.WithFields(ctx, fields)
	}
	s.logg.Info(ctx, msg)
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": err.Error()}), msg)
}
