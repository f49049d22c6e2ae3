package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable item scoped to one tenant.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID     uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	Name         string          `gorm:"column:name;not null" json:"name"`
	Description  string          `gorm:"column:description" json:"description"`
	SKU          string          `gorm:"column:sku" json:"sku"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	CostPrice    decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2);not null;default:0" json:"cost_price"`
	Stock        int             `gorm:"column:stock;not null;default:0" json:"stock"`
	MinStock     int             `gorm:"column:min_stock;not null;default:0" json:"min_stock"`
	CategoryID   *uuid.UUID      `gorm:"column:category_id;type:uuid" json:"category_id,omitempty"`
	SupplierID   *uuid.UUID      `gorm:"column:supplier_id;type:uuid" json:"supplier_id,omitempty"`
	ImageURL     string          `gorm:"column:image_url" json:"image_url"`
	StoreVisible bool            `gorm:"column:store_visible;not null;default:true" json:"store_visible"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (m *Product) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *Product) IDRef() *uuid.UUID { return &m.ID }
