package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ventia-app/ventia-backend/pkg/enums"
)

// InventoryMovement is the append-only stock audit log. Quantity is signed:
// negative for sales, positive for purchases and upward adjustments.
type InventoryMovement struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	ProductID uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	Type      enums.MovementType `gorm:"column:type;not null" json:"type"`
	Quantity  int                `gorm:"column:quantity;not null" json:"quantity"`
	Reference string             `gorm:"column:reference" json:"reference"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (m *InventoryMovement) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *InventoryMovement) IDRef() *uuid.UUID { return &m.ID }
