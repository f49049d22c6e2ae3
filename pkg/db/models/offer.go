package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Offer is a time-bounded percentage discount on a product.
type Offer struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID        uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null" json:"discount_percent"`
	StartsAt        time.Time       `gorm:"column:starts_at;not null" json:"starts_at"`
	EndsAt          time.Time       `gorm:"column:ends_at;not null" json:"ends_at"`
	Active          bool            `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (m *Offer) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *Offer) IDRef() *uuid.UUID { return &m.ID }
