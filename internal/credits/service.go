package credits

import (
	"context"
	"errors"

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

// ServiceParams wires the credit collection service.
type ServiceParams struct {
	DB   *db.Client
	Logg *logger.Logger
}

// Service records installments against credit sales and keeps the derived
// balances (sale amounts, customer debt, loyalty points) consistent.
type Service struct {
	db   *db.Client
	logg *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{db: params.DB, logg: params.Logg}
}

// RegisterInput is one installment payment.
type RegisterInput struct {
	SaleID uuid.UUID           `json:"sale_id" validate:"required"`
	Amount decimal.Decimal     `json:"amount" validate:"required"`
	Method enums.PaymentMethod `json:"method"`
	Notes  string              `json:"notes"`
}

// pointsFor mirrors the sale-side loyalty conversion; credit sales earn
// their points only once fully collected.
func pointsFor(total decimal.Decimal) int {
	return int(total.Div(decimal.NewFromInt(1000)).IntPart())
}

// rewardThreshold is the loyalty balance at which the customer earns a
// reward. Crossings are reported to the caller; redemption is a manual
// operator action.
const rewardThreshold = 500

// RegisterResult is the outcome of one installment: the recorded payment
// plus the loyalty effect of a settling collection.
type RegisterResult struct {
	Payment       *models.CreditPayment `json:"payment"`
	PointsAwarded int                   `json:"points_awarded"`
	RewardEarned  bool                  `json:"reward_earned"`
}

// Register applies one installment. The amount must stay within the sale's
// open balance, and the customer's debt is clamped at zero in case the
// operator edited it below the balance directly.
func (s *Service) Register(ctx context.Context, tenantID uuid.UUID, in RegisterInput) (*RegisterResult, error) {
	if !in.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	method := in.Method
	if method == "" {
		method = enums.MethodCash
	}
	if method == enums.MethodCredit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "installments cannot be paid on credit")
	}

	sc, err := scope.New(s.db.DB(), tenantID)
	if err != nil {
		return nil, err
	}

	result := &RegisterResult{}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txScope := sc.WithTx(tx)

		var sale models.Sale
		err := tx.WithContext(ctx).
			Where("id = ? AND tenant_id = ?", in.SaleID, tenantID).
			First(&sale).Error
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		if sale.Status == enums.SaleCanceled {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "cannot collect on a cancelled sale")
		}
		if !sale.AmountPending.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "sale has no open balance")
		}
		if in.Amount.GreaterThan(sale.AmountPending) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "payment exceeds the open balance")
		}

		payment := &models.CreditPayment{
			SaleID:     sale.ID,
			CustomerID: sale.CustomerID,
			Amount:     in.Amount,
			Method:     method,
			Notes:      in.Notes,
		}
		if err := scope.NewRepository[models.CreditPayment, *models.CreditPayment](txScope).Create(ctx, payment); err != nil {
			return err
		}
		result.Payment = payment

		paid := sale.AmountPaid.Add(in.Amount)
		pending := sale.AmountPending.Sub(in.Amount)
		status := enums.PaymentPartial
		if pending.IsZero() {
			status = enums.PaymentPaid
		}
		err = tx.Model(&models.Sale{}).
			Where("id = ? AND tenant_id = ?", sale.ID, tenantID).
			Updates(map[string]any{
				"amount_paid":    paid,
				"amount_pending": pending,
				"payment_status": status,
			}).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update sale balance")
		}

		if sale.CustomerID != nil {
			var customer models.Customer
			err := tx.WithContext(ctx).
				Where("id = ? AND tenant_id = ?", *sale.CustomerID, tenantID).
				First(&customer).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Customer row was removed after the sale; nothing to settle.
				return nil
			case err != nil:
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
			}

			debt := customer.Debt.Sub(in.Amount)
			if debt.IsNegative() {
				debt = decimal.Zero
			}
			updates := map[string]any{"debt": debt}

			// Loyalty points were deferred at sale time; grant them now that
			// the balance is settled, and report whether the new balance
			// crossed the reward threshold.
			if status == enums.PaymentPaid {
				if points := pointsFor(sale.Total); points > 0 {
					newPoints := customer.Points + points
					updates["points"] = newPoints
					result.PointsAwarded = points
					result.RewardEarned = newPoints/rewardThreshold > customer.Points/rewardThreshold
				}
			}

			err = tx.Model(&models.Customer{}).
				Where("id = ? AND tenant_id = ?", customer.ID, tenantID).
				Updates(updates).Error
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update customer")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"sale_id":       in.SaleID.String(),
			"amount":        in.Amount.String(),
			"reward_earned": result.RewardEarned,
		})
		s.logg.Info(lctx, "credit payment registered")
	}
	return result, nil
}

// List returns installments, optionally narrowed to one sale, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, saleID *uuid.UUID, params pagination.Params) (pagination.Page[*models.CreditPayment], error) {
	params = params.Normalize()

	q := s.db.DB().WithContext(ctx).Model(&models.CreditPayment{}).Where("tenant_id = ?", tenantID)
	if saleID != nil {
		q = q.Where("sale_id = ?", *saleID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return pagination.Page[*models.CreditPayment]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count payments")
	}
	var rows []*models.CreditPayment
	err := q.Order("created_at DESC").Limit(params.Limit).Offset(params.Offset).Find(&rows).Error
	if err != nil {
		return pagination.Page[*models.CreditPayment]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	return pagination.NewPage(rows, total, params), nil
}

// OpenSales lists credit sales that still carry a balance.
func (s *Service) OpenSales(ctx context.Context, tenantID uuid.UUID) ([]*models.Sale, error) {
	var rows []*models.Sale
	err := s.db.DB().WithContext(ctx).
		Where("tenant_id = ? AND amount_pending > 0 AND status <> ?", tenantID, enums.SaleCanceled).
		Order("due_date ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list open sales")
	}
	return rows, nil
}
