package model

import (
	"time"
)

const (
	ActionLogin         = "LOGIN"
	ActionRefreshToken  = "REFRESH_TOKEN"
	ActionCreateEvent   = "CREATE_EVENT"
	ActionCompleteEvent = "COMPLETE_EVENT"
	ActionPostponeEvent = "POSTPONE_EVENT"
	ActionFollowUpEvent = "FOLLOWUP_EVENT"
	ActionRejectEvent   = "REJECT_EVENT"
	ActionCreateUser    = "CREATE_USER"
	ActionUpdateUser    = "UPDATE_USER"
	ActionDeleteUser    = "DELETE_USER"
	ActionAssignRoles   = "ASSIGN_ROLES"
	ActionCreateRole    = "CREATE_ROLE"
	ActionUpdateRole    = "UPDATE_ROLE"
	ActionDeleteRole    = "DELETE_ROLE"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"` // Nullable gracefully if automated
	User       *User     `gorm:"foreignKey:UserID" json:"user"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (numeric id/code)
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string    `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
