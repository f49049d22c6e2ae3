package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ventia-app/ventia-backend/pkg/enums"
)

// PaymentTransaction is the append-only log of gateway events, keyed by the
// gateway's transaction id. The reconciler updates Status in place when the
// gateway redelivers the same transaction; no other column changes after
// insert and the table carries no update timestamp.
type PaymentTransaction struct {
	ID                   uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID             uuid.UUID             `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	GatewayTransactionID string                `gorm:"column:gateway_transaction_id;not null;uniqueIndex" json:"gateway_transaction_id"`
	Reference            string                `gorm:"column:reference;not null" json:"reference"`
	Type                 enums.TransactionType `gorm:"column:type;not null" json:"type"`
	Status               string                `gorm:"column:status;not null" json:"status"`
	Amount               decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null;default:0" json:"amount"`
	CreatedAt            time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (m *PaymentTransaction) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *PaymentTransaction) IDRef() *uuid.UUID { return &m.ID }
