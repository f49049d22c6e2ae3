package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ventia-app/ventia-backend/pkg/enums"
)

// PurchaseOrder is a replenishment order against a supplier. Receiving it
// increments stock and refreshes product cost prices in one transaction.
type PurchaseOrder struct {
	ID         uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID   uuid.UUID                 `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	SupplierID *uuid.UUID                `gorm:"column:supplier_id;type:uuid" json:"supplier_id,omitempty"`
	Status     enums.PurchaseOrderStatus `gorm:"column:status;not null;default:'pendiente'" json:"status"`
	Total      decimal.Decimal           `gorm:"column:total;type:numeric(12,2);not null;default:0" json:"total"`
	Notes      string                    `gorm:"column:notes" json:"notes"`
	ReceivedAt *time.Time                `gorm:"column:received_at" json:"received_at,omitempty"`
	Items      []PurchaseOrderItem       `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt  time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time                 `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (m *PurchaseOrder) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *PurchaseOrder) IDRef() *uuid.UUID { return &m.ID }

type PurchaseOrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID        uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	PurchaseOrderID uuid.UUID       `gorm:"column:purchase_order_id;type:uuid;not null;index" json:"purchase_order_id"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Quantity        int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2);not null" json:"unit_cost"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (m *PurchaseOrderItem) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *PurchaseOrderItem) IDRef() *uuid.UUID { return &m.ID }
