package model

import (
	"time"
)

// Role represents a named bundle of permissions assignable to users
type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"` // Prevent deletion of built-in roles
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission represents a single named capability that can be assigned to roles.
// Names are matched case-sensitively at authorization time.
type Permission struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"` // e.g. "events.complete"
	Description string `gorm:"type:varchar(255);not null" json:"description"`
	Group       string `gorm:"type:varchar(50);not null;index" json:"group"` // "events", "users", "roles"...
}
