package models

import (
	"time"

	"gorm.io/gorm"
)

// Waitlist statuses
const (
	WaitlistWaiting   = "waiting"
	WaitlistNotified  = "notified"
	WaitlistSeated    = "seated"
	WaitlistCancelled = "cancelled"
	WaitlistNoShow    = "no-show"
)

// Waitlist priorities
const (
	PriorityNormal      = "normal"
	PriorityVIP         = "vip"
	PriorityReservation = "reservation"
)

// Notification preferences
const (
	NotifySMS      = "sms"
	NotifyWhatsApp = "whatsapp"
	NotifyBoth     = "both"
)

type WaitlistEntry struct {
	ID                     string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	GuestName              string     `json:"guestName" gorm:"type:varchar(255);not null"`
	PhoneNumber            string     `json:"phoneNumber" gorm:"type:varchar(32);not null;index"`
	PartySize              int        `json:"partySize" gorm:"not null"`
	Status                 string     `json:"status" gorm:"type:varchar(20);not null;default:'waiting';index:idx_waitlist_status_created"`
	Priority               string     `json:"priority" gorm:"type:varchar(20);not null;default:'normal'"`
	EstimatedWaitTime      int        `json:"estimatedWaitTime" gorm:"not null;default:0"`
	NotificationPreference string     `json:"notificationPreference" gorm:"type:varchar(20);not null;default:'sms'"`
	Notes                  string     `json:"notes" gorm:"type:varchar(500)"`
	AssignedTableID        *string    `json:"assignedTable" gorm:"type:varchar(36)"`
	AddedByID              *string    `json:"addedBy" gorm:"type:varchar(36)"`
	NotifiedAt             *time.Time `json:"notifiedAt"`
	SeatedAt               *time.Time `json:"seatedAt"`
	CancelledAt            *time.Time `json:"cancelledAt"`
	ActualWaitTime         *int       `json:"actualWaitTime"`
	Version                int64      `json:"version" gorm:"not null;default:0"`
	CreatedAt              time.Time  `json:"createdAt" gorm:"not null;index:idx_waitlist_status_created"`
	UpdatedAt              time.Time  `json:"updatedAt" gorm:"not null"`
}

func (w *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = NewID()
	}
	return nil
}

// IsTerminal reports whether the entry left the queue for good.
func (w *WaitlistEntry) IsTerminal() bool {
	switch w.Status {
	case WaitlistSeated, WaitlistCancelled, WaitlistNoShow:
		return true
	}
	return false
}
