package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Activity types
const (
	ActivityTable        = "table"
	ActivityWaitlist     = "waitlist"
	ActivityNotification = "notification"
	ActivityAuth         = "auth"
	ActivitySystem       = "system"
)

type ActivityMetadata struct {
	TableID    string `json:"tableId,omitempty"`
	WaitlistID string `json:"waitlistId,omitempty"`
	TargetName string `json:"targetName,omitempty"`
}

// ActivityLog is append-only. Rows are never updated after insert.
type ActivityLog struct {
	ID            string                                `json:"id" gorm:"type:varchar(36);primaryKey"`
	Type          string                                `json:"type" gorm:"type:varchar(20);not null"`
	Action        string                                `json:"action" gorm:"type:varchar(50);not null"`
	Description   string                                `json:"description" gorm:"type:text;not null"`
	PerformedByID *string                               `json:"performedBy" gorm:"type:varchar(36)"`
	Metadata      datatypes.JSONType[ActivityMetadata] `json:"metadata"`
	CreatedAt     time.Time                             `json:"createdAt" gorm:"not null;index"`
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = NewID()
	}
	return nil
}
