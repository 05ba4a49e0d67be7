package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Event status enum constants
const (
	EventStatusPending   = "PENDING"
	EventStatusCompleted = "COMPLETED"
	EventStatusRejected  = "REJECTED"
)

// PostponeOffset is the fixed amount an event's start time moves on each postpone.
const PostponeOffset = 24 * time.Hour

// Event represents a scheduled activity owned by its creator
type Event struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Title         string          `gorm:"type:varchar(255);not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	Location      string          `gorm:"type:varchar(255)" json:"location"`
	StartTime     time.Time       `gorm:"not null;index" json:"start_time"`
	Budget        decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"budget"`
	Status        string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	NeedsFollowUp bool            `gorm:"default:false" json:"needs_follow_up"`
	PostponeCount int             `gorm:"default:0" json:"postpone_count"`
	CreatedByID   uint            `gorm:"not null;index" json:"created_by_id"`
	CreatedBy     *User           `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}
