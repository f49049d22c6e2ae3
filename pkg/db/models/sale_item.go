package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleItem is one product line on a sale. Append-only: the table carries no
// update timestamp.
type SaleItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID        uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	SaleID          uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index" json:"sale_id"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	ProductName     string          `gorm:"column:product_name;not null" json:"product_name"`
	Quantity        int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0" json:"discount_percent"`
	Subtotal        decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (m *SaleItem) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *SaleItem) IDRef() *uuid.UUID { return &m.ID }
