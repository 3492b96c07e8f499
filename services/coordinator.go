package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/realtime"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SeatResult struct {
	Entry   models.WaitlistEntry  `json:"entry"`
	Table   models.Table          `json:"table"`
	History models.ServiceHistory `json:"history"`
}

// Coordinator links a waitlist entry to a table as one unit.
//
// Two guards apply. In process, the keyed mutex serializes every write that
// touches the same table or entry. In the store, both rows are updated with a
// status predicate inside one transaction, so a writer in another process that
// got there first makes the update match zero rows and the whole seating rolls
// back.
type Coordinator struct {
	deps Deps
	log  logrus.FieldLogger
}

func NewCoordinator(deps Deps) *Coordinator {
	deps = deps.withDefaults()
	return &Coordinator{deps: deps, log: deps.Log.WithField("component", "coordinator")}
}

func (c *Coordinator) Seat(ctx context.Context, entryID, tableID, actorID string) (*SeatResult, error) {
	if tableID == "" {
		return nil, &ValidationError{Fields: map[string]string{"tableId": "is required"}}
	}

	unlock := c.deps.Locks.Lock(entryKey(entryID), tableKey(tableID))
	defer unlock()

	now := c.deps.Now()
	var res SeatResult

	err := c.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx, &res.Entry, entryID, "waitlist entry"); err != nil {
			return err
		}
		if err := lockRow(tx, &res.Table, tableID, "table"); err != nil {
			return err
		}

		if err := OccupyTable(&res.Table, res.Entry.ID, now); err != nil {
			return err
		}
		if err := MarkSeated(&res.Entry, res.Table.ID, now); err != nil {
			return err
		}

		tableRes := tx.Model(&models.Table{}).
			Where("id = ? AND status = ? AND is_active = ?", res.Table.ID, models.TableFree, true).
			Updates(map[string]interface{}{
				"status":           res.Table.Status,
				"current_guest_id": res.Entry.ID,
				"occupied_at":      res.Table.OccupiedAt,
				"version":          gorm.Expr("version + 1"),
				"updated_at":       now,
			})
		if tableRes.Error != nil {
			return tableRes.Error
		}
		if tableRes.RowsAffected == 0 {
			return &ConflictError{Reason: "table is not available"}
		}

		entryRes := tx.Model(&models.WaitlistEntry{}).
			Where("id = ? AND status IN ?", res.Entry.ID, []string{models.WaitlistWaiting, models.WaitlistNotified}).
			Updates(map[string]interface{}{
				"status":            res.Entry.Status,
				"assigned_table_id": res.Table.ID,
				"seated_at":         res.Entry.SeatedAt,
				"actual_wait_time":  res.Entry.ActualWaitTime,
				"version":           gorm.Expr("version + 1"),
				"updated_at":        now,
			})
		if entryRes.Error != nil {
			return entryRes.Error
		}
		if entryRes.RowsAffected == 0 {
			return &ConflictError{Reason: "guest is already seated or removed"}
		}

		res.History = NewServiceHistory(&res.Table, &res.Entry, actorID, now)
		return tx.Create(&res.History).Error
	})
	if err != nil {
		return nil, err
	}

	res.Table.Version++
	res.Table.UpdatedAt = now
	res.Entry.Version++
	res.Entry.UpdatedAt = now

	c.log.WithFields(logrus.Fields{
		"waitlist_id": res.Entry.ID,
		"table_id":    res.Table.ID,
		"wait_time":   res.History.WaitTime,
	}).Info("Guest seated")

	// Still under the entity locks, so events for these rows go out in commit order.
	c.deps.Publisher.Publish(realtime.TopicTableUpdated, res.Table)
	c.deps.Publisher.Publish(realtime.TopicWaitlistUpdated, res.Entry)
	c.deps.Publisher.Publish(realtime.TopicGuestSeated, res)

	c.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityWaitlist,
		Action:      "seat",
		Description: fmt.Sprintf("%s seated at table %s", res.Entry.GuestName, res.Table.TableNumber),
		ActorID:     actorID,
		Metadata:    models.ActivityMetadata{TableID: res.Table.ID, WaitlistID: res.Entry.ID, TargetName: res.Entry.GuestName},
	})
	c.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityTable,
		Action:      "occupy",
		Description: fmt.Sprintf("Table %s is now occupied", res.Table.TableNumber),
		ActorID:     actorID,
		Metadata:    models.ActivityMetadata{TableID: res.Table.ID, WaitlistID: res.Entry.ID, TargetName: res.Table.TableNumber},
	})

	return &res, nil
}

// lockRow loads dest by id with a row lock where the dialect supports one.
func lockRow(tx *gorm.DB, dest interface{}, id, resource string) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return err
}
