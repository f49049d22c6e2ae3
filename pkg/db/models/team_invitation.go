package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ventia-app/ventia-backend/pkg/enums"
)

// TeamInvitation invites an operator into a tenant by email.
type TeamInvitation struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID   uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	Email      string           `gorm:"column:email;not null" json:"email"`
	Role       enums.MemberRole `gorm:"column:role;not null;default:'vendedor'" json:"role"`
	Token      string           `gorm:"column:token;not null;uniqueIndex" json:"token"`
	ExpiresAt  time.Time        `gorm:"column:expires_at;not null" json:"expires_at"`
	AcceptedAt *time.Time       `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (m *TeamInvitation) TenantRef() *uuid.UUID { return &m.TenantID }
func (m *TeamInvitation) IDRef() *uuid.UUID { return &m.ID }
