package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ventia-app/ventia-backend/pkg/enums"
)

// Tenant maps an external identity-provider subject to an internal account.
// The row is created lazily on first authenticated sight of a new identity
// and is the source of truth for subscription gating.
type Tenant struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ExternalID         string                   `gorm:"column:external_id;not null;uniqueIndex" json:"external_id"`
	Email              string                   `gorm:"column:email;not null" json:"email"`
	SubscriptionStatus enums.SubscriptionStatus `gorm:"column:subscription_status;not null;default:'trial'" json:"subscription_status"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
