package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer tracks a buyer, their outstanding credit debt, and loyalty points.
type Customer struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	Phone     string          `gorm:"column:phone" json:"phone"`
	Email     string          `gorm:"column:email" json:"email"`
	Address   string          `gorm:"column:address" json:"address"`
	Debt      decimal.Decimal `gorm:"column:debt;type:numeric(12,2);not null;default:0" json:"debt"`
	Points    int             `gorm:"column:points;not null;default:0" json:"points"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (m *Customer) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *Customer) IDRef() *uuid.UUID { return &m.ID }
