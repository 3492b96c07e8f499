package services

import (
	"time"

	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/utils"
)

// DayOfWeek names the weekday a service happened on.
func DayOfWeek(t time.Time) string {
	return t.Weekday().String()
}

// ShiftFor maps the hour of t to a service shift.
func ShiftFor(t time.Time) string {
	h := t.Hour()
	switch {
	case h >= 6 && h < 11:
		return models.ShiftBreakfast
	case h >= 11 && h < 16:
		return models.ShiftLunch
	case h >= 16 && h < 22:
		return models.ShiftDinner
	default:
		return models.ShiftLateNight
	}
}

// NewServiceHistory builds the record appended when a guest is seated.
func NewServiceHistory(table *models.Table, entry *models.WaitlistEntry, actorID string, now time.Time) models.ServiceHistory {
	waiter := table.AssignedWaiterID
	if waiter == nil && actorID != "" {
		id := actorID
		waiter = &id
	}

	wait := 0
	if entry.ActualWaitTime != nil {
		wait = *entry.ActualWaitTime
	}

	return models.ServiceHistory{
		TableID:         table.ID,
		WaitlistEntryID: entry.ID,
		WaiterID:        waiter,
		GuestName:       entry.GuestName,
		PartySize:       entry.PartySize,
		SeatedAt:        now,
		WaitTime:        wait,
		Date:            now,
		DayOfWeek:       DayOfWeek(now),
		Shift:           ShiftFor(now),
	}
}

// CloseServiceHistory stamps departure once.
func CloseServiceHistory(h *models.ServiceHistory, now time.Time) bool {
	if h.LeftAt != nil {
		return false
	}
	at := now
	h.LeftAt = &at
	d := utils.MinutesBetween(h.SeatedAt, now)
	h.ServiceDuration = &d
	return true
}
