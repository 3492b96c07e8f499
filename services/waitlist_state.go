package services

import (
	"time"

	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/utils"
)

var waitlistTransitions = map[string][]string{
	models.WaitlistWaiting:  {models.WaitlistNotified, models.WaitlistSeated, models.WaitlistCancelled, models.WaitlistNoShow},
	models.WaitlistNotified: {models.WaitlistSeated, models.WaitlistNoShow},
}

func ValidWaitlistStatus(status string) bool {
	switch status {
	case models.WaitlistWaiting, models.WaitlistNotified, models.WaitlistSeated,
		models.WaitlistCancelled, models.WaitlistNoShow:
		return true
	}
	return false
}

func CanTransitionWaitlist(from, to string) bool {
	for _, next := range waitlistTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// MarkNotified is only valid while the guest is still waiting.
func MarkNotified(e *models.WaitlistEntry, now time.Time) error {
	if e.Status != models.WaitlistWaiting {
		return &InvalidStateError{
			Action: "notify",
			From:   e.Status,
			Reason: "can only notify guests with waiting status",
		}
	}
	e.Status = models.WaitlistNotified
	at := now
	e.NotifiedAt = &at
	return nil
}

// MarkSeated links the entry to tableID and fixes its wait time.
func MarkSeated(e *models.WaitlistEntry, tableID string, now time.Time) error {
	if !CanTransitionWaitlist(e.Status, models.WaitlistSeated) {
		return &ConflictError{Reason: "guest is already " + e.Status}
	}
	e.Status = models.WaitlistSeated
	id := tableID
	e.AssignedTableID = &id
	applySeatTimestamps(e, now)
	return nil
}

// applySeatTimestamps computes the wait time once. The guard is on presence of
// the value, so saving a seated entry again never recomputes it.
func applySeatTimestamps(e *models.WaitlistEntry, now time.Time) {
	if e.Status != models.WaitlistSeated {
		return
	}
	if e.ActualWaitTime == nil {
		wait := utils.MinutesBetween(e.CreatedAt, now)
		e.ActualWaitTime = &wait
	}
	if e.SeatedAt == nil {
		at := now
		e.SeatedAt = &at
	}
}

func MarkCancelled(e *models.WaitlistEntry, now time.Time) error {
	if !CanTransitionWaitlist(e.Status, models.WaitlistCancelled) {
		return &InvalidStateError{Action: "cancel", From: e.Status}
	}
	e.Status = models.WaitlistCancelled
	at := now
	e.CancelledAt = &at
	return nil
}

func MarkNoShow(e *models.WaitlistEntry) error {
	if !CanTransitionWaitlist(e.Status, models.WaitlistNoShow) {
		return &InvalidStateError{Action: "mark no-show", From: e.Status}
	}
	e.Status = models.WaitlistNoShow
	return nil
}

// RevertSeating undoes a seating that never committed as a unit. Only the
// reconciler uses it.
func RevertSeating(e *models.WaitlistEntry) {
	e.Status = models.WaitlistWaiting
	e.AssignedTableID = nil
	e.SeatedAt = nil
	e.ActualWaitTime = nil
}
