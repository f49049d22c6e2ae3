package models

import (
	"time"

	"github.com/google/uuid"
)

// StockAlert subscribes an email address to low-stock notifications for one
// product.
type StockAlert struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	Email     string    `gorm:"column:email;not null" json:"email"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (m *StockAlert) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *StockAlert) IDRef() *uuid.UUID { return &m.ID }
