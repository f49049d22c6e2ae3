package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a storefront cart line keyed by an anonymous session. Rows
// left untouched past the configured window feed the abandoned-cart job.
type CartItem struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	SessionID     string    `gorm:"column:session_id;not null;index" json:"session_id"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Quantity      int       `gorm:"column:quantity;not null" json:"quantity"`
	CustomerEmail string    `gorm:"column:customer_email" json:"customer_email"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (m *CartItem) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *CartItem) IDRef() *uuid.UUID { return &m.ID }
