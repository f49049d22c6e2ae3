package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ventia-app/ventia-backend/pkg/enums"
)

// UserProfile is the operator-facing account row. Its id, not the raw
// tenant id, is the scoping key stamped on every domain table.
type UserProfile struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ExternalID         string                   `gorm:"column:external_id;not null;uniqueIndex" json:"external_id"`
	Email              string                   `gorm:"column:email;not null;index" json:"email"`
	Name               string                   `gorm:"column:name" json:"name"`
	Role               enums.MemberRole         `gorm:"column:role;not null;default:'admin'" json:"role"`
	Superadmin         bool                     `gorm:"column:superadmin;not null;default:false" json:"superadmin"`
	SubscriptionStatus enums.SubscriptionStatus `gorm:"column:subscription_status;not null;default:'trial'" json:"subscription_status"`
	TrialEndsAt        *time.Time               `gorm:"column:trial_ends_at" json:"trial_ends_at,omitempty"`
	NextBillingAt      *time.Time               `gorm:"column:next_billing_at" json:"next_billing_at,omitempty"`
	StorefrontAddon    bool                     `gorm:"column:storefront_addon;not null;default:false" json:"storefront_addon"`
	StoreSlug          *string                  `gorm:"column:store_slug;uniqueIndex" json:"store_slug,omitempty"`
	StoreEnabled       bool                     `gorm:"column:store_enabled;not null;default:false" json:"store_enabled"`
	StoreName          string                   `gorm:"column:store_name" json:"store_name"`
	StoreWhatsApp      string                   `gorm:"column:store_whatsapp" json:"store_whatsapp"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
