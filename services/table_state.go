package services

import (
	"time"

	"github.com/sarthaktajane07/DineFlow/models"
)

// Transitions reachable through a plain status update. Entering occupied is
// reserved to the seating path, which links a guest in the same write.
var tableTransitions = map[string][]string{
	models.TableFree:     {models.TableReserved, models.TableOccupied},
	models.TableReserved: {models.TableFree},
	models.TableOccupied: {models.TableFree, models.TableCleaning},
	models.TableCleaning: {models.TableFree},
}

func ValidTableStatus(status string) bool {
	_, ok := tableTransitions[status]
	return ok
}

func CanTransitionTable(from, to string) bool {
	if from == to {
		return ValidTableStatus(from)
	}
	for _, next := range tableTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplyTableStatus moves t to status for an update request. Re-applying the
// current status is a no-op. When t leaves occupied, the id of the guest that
// was linked is returned so the caller can close the seating.
func ApplyTableStatus(t *models.Table, status string, now time.Time) (*string, error) {
	if !ValidTableStatus(status) {
		return nil, &ValidationError{Fields: map[string]string{"status": "must be one of free, occupied, reserved, cleaning"}}
	}
	if t.Status == status {
		return nil, nil
	}
	if status == models.TableOccupied {
		return nil, &ConflictError{Reason: "a table becomes occupied only by seating a guest"}
	}
	if !CanTransitionTable(t.Status, status) {
		return nil, &InvalidStateError{Action: "change table status to " + status, From: t.Status}
	}

	var released *string
	if t.Status == models.TableOccupied {
		released = t.CurrentGuestID
	}

	t.Status = status
	if status != models.TableOccupied {
		t.CurrentGuestID = nil
		t.OccupiedAt = nil
	}
	return released, nil
}

// OccupyTable links entryID to a free, active table. occupiedAt is only set
// when it is not set already.
func OccupyTable(t *models.Table, entryID string, now time.Time) error {
	if !t.IsActive {
		return &ConflictError{Reason: "table is not active"}
	}
	if t.Status != models.TableFree {
		return &ConflictError{Reason: "table is not available"}
	}

	t.Status = models.TableOccupied
	id := entryID
	t.CurrentGuestID = &id
	if t.OccupiedAt == nil {
		at := now
		t.OccupiedAt = &at
	}
	return nil
}

// TableInvariantHolds reports whether occupancy linkage is consistent.
func TableInvariantHolds(t *models.Table) bool {
	occupied := t.Status == models.TableOccupied
	linked := t.CurrentGuestID != nil && *t.CurrentGuestID != ""
	if occupied != linked {
		return false
	}
	return occupied == (t.OccupiedAt != nil)
}
