package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ventia-app/ventia-backend/pkg/enums"
)

// Sale is the aggregate root for a transaction, in-person or web-originated.
// Credit sales additionally track paid/pending amounts and a derived
// payment status.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	SaleNumber    string              `gorm:"column:sale_number;not null;index" json:"sale_number"`
	CustomerID    *uuid.UUID          `gorm:"column:customer_id;type:uuid" json:"customer_id,omitempty"`
	Origin        enums.SaleOrigin    `gorm:"column:origin;not null;default:'pos'" json:"origin"`
	Status        enums.SaleStatus    `gorm:"column:status;not null;default:'completada'" json:"status"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null" json:"payment_method"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	Discount      decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0" json:"discount"`
	ShippingCost  decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0" json:"shipping_cost"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	AmountPaid    decimal.Decimal     `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0" json:"amount_paid"`
	AmountPending decimal.Decimal     `gorm:"column:amount_pending;type:numeric(12,2);not null;default:0" json:"amount_pending"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pendiente'" json:"payment_status"`
	DueDate       *time.Time          `gorm:"column:due_date" json:"due_date,omitempty"`
	// Web-order contact snapshot; empty for point-of-sale transactions.
	CustomerName   string     `gorm:"column:customer_name" json:"customer_name"`
	CustomerPhone  string     `gorm:"column:customer_phone" json:"customer_phone"`
	DeliveryMethod string     `gorm:"column:delivery_method" json:"delivery_method"`
	Notes          string     `gorm:"column:notes" json:"notes"`
	Items          []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (m *Sale) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *Sale) IDRef() *uuid.UUID { return &m.ID }
