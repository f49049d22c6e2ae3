package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingZone prices storefront delivery for a named area.
type ShippingZone struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	Cost      decimal.Decimal `gorm:"column:cost;type:numeric(12,2);not null;default:0" json:"cost"`
	Active    bool            `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (m *ShippingZone) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *ShippingZone) IDRef() *uuid.UUID { return &m.ID }
