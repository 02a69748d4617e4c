// Package models contains domain entities and business models for the landing API
package models

import (
	"time"

	"github.com/google/uuid"
)

type Visitor struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_visitors_uuid;index:idx_visitors_uuid" json:"uuid"`

	Email        string `gorm:"size:255;not null;uniqueIndex:idx_visitors_email" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	DisplayName *string `gorm:"size:120" json:"display_name,omitempty"`

	IsActive *bool `gorm:"default:true;index:idx_visitors_is_active" json:"is_active"`

	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_visitors_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_visitors_last_login_at" json:"last_login_at,omitempty"`

	Sessions  []VisitorSession `gorm:"foreignKey:VisitorID" json:"-"`
	AuditLogs []AuditLog       `gorm:"foreignKey:VisitorID" json:"-"`
}

func (Visitor) TableName() string {
	return "visitors"
}

// VisitorFilter represents filter criteria for visitor queries
type VisitorFilter struct {
	ID             *uint
	UUID           *uuid.UUID
	Email          *string
	IsActive       *bool
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	LastLoginAfter *time.Time
}
