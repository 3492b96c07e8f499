package services

import (
	"sort"

	"github.com/sarthaktajane07/DineFlow/models"
)

// queueLess orders waiting entries by creation time, then by ID. IDs are time
// ordered, so the second key follows insertion order.
func queueLess(a, b *models.WaitlistEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// QueuePosition returns the 1-based rank of entry among the waiting entries
// in pool. ok is false when entry is not waiting.
func QueuePosition(entry *models.WaitlistEntry, pool []models.WaitlistEntry) (int, bool) {
	if entry == nil || entry.Status != models.WaitlistWaiting {
		return 0, false
	}

	ahead := 0
	for i := range pool {
		other := &pool[i]
		if other.Status != models.WaitlistWaiting || other.ID == entry.ID {
			continue
		}
		if queueLess(other, entry) {
			ahead++
		}
	}
	return ahead + 1, true
}

// QueuePositions computes every waiting entry's position in a single pass.
func QueuePositions(pool []models.WaitlistEntry) map[string]int {
	waiting := make([]*models.WaitlistEntry, 0, len(pool))
	for i := range pool {
		if pool[i].Status == models.WaitlistWaiting {
			waiting = append(waiting, &pool[i])
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		return queueLess(waiting[i], waiting[j])
	})

	positions := make(map[string]int, len(waiting))
	for i, e := range waiting {
		positions[e.ID] = i + 1
	}
	return positions
}
