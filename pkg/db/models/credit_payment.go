package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ventia-app/ventia-backend/pkg/enums"
)

// CreditPayment records one installment against a credit sale. Append-only.
type CreditPayment struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID   uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	SaleID     uuid.UUID           `gorm:"column:sale_id;type:uuid;not null;index" json:"sale_id"`
	CustomerID *uuid.UUID          `gorm:"column:customer_id;type:uuid" json:"customer_id,omitempty"`
	Amount     decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Method     enums.PaymentMethod `gorm:"column:method;not null;default:'efectivo'" json:"method"`
	Notes      string              `gorm:"column:notes" json:"notes"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (m *CreditPayment) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *CreditPayment) IDRef() *uuid.UUID { return &m.ID }
