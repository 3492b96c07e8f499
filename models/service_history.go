package models

import (
	"time"

	"gorm.io/gorm"
)

// Shifts
const (
	ShiftBreakfast = "breakfast"
	ShiftLunch     = "lunch"
	ShiftDinner    = "dinner"
	ShiftLateNight = "late-night"
)

// ServiceHistory records one seating at a table, from seat until the table is released.
type ServiceHistory struct {
	ID              string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	TableID         string     `json:"table" gorm:"type:varchar(36);not null;index"`
	WaitlistEntryID string     `json:"waitlistEntry" gorm:"type:varchar(36);not null;index"`
	WaiterID        *string    `json:"waiter" gorm:"type:varchar(36);index"`
	GuestName       string     `json:"guestName" gorm:"type:varchar(255);not null"`
	PartySize       int        `json:"partySize" gorm:"not null"`
	SeatedAt        time.Time  `json:"seatedAt" gorm:"not null"`
	LeftAt          *time.Time `json:"leftAt"`
	ServiceDuration *int       `json:"serviceDuration"`
	WaitTime        int        `json:"waitTime" gorm:"not null"`
	Date            time.Time  `json:"date" gorm:"not null;index"`
	DayOfWeek       string     `json:"dayOfWeek" gorm:"type:varchar(10)"`
	Shift           string     `json:"shift" gorm:"type:varchar(20)"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (s *ServiceHistory) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	return nil
}
