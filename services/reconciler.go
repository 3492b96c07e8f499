package services

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/realtime"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const DefaultReconcileSchedule = "@every 1m"

type ReconcileReport struct {
	FreedTables     []string `json:"freedTables"`
	RequeuedEntries []string `json:"requeuedEntries"`
}

// Reconciler repairs seatings that were left half applied, for example by a
// writer that crashed between its table and entry writes.
type Reconciler struct {
	deps Deps
	log  logrus.FieldLogger
	cron *cron.Cron
}

func NewReconciler(deps Deps) *Reconciler {
	deps = deps.withDefaults()
	return &Reconciler{deps: deps, log: deps.Log.WithField("component", "reconciler")}
}

// Start runs one pass immediately and then follows schedule.
func (r *Reconciler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, r.runScheduled); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}

	r.runScheduled()
	c.Start()
	r.cron = c
	r.log.WithField("schedule", schedule).Info("Reconciler scheduled")
	return nil
}

// Stop waits for a running pass to finish.
func (r *Reconciler) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

func (r *Reconciler) runScheduled() {
	if _, err := r.Run(context.Background()); err != nil {
		r.log.WithError(err).Error("Reconcile pass failed")
	}
}

func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	var occupied []models.Table
	if err := r.deps.DB.WithContext(ctx).Where("status = ?", models.TableOccupied).Find(&occupied).Error; err != nil {
		return nil, err
	}
	for _, t := range occupied {
		freed, err := r.repairTable(ctx, t.ID)
		if err != nil {
			return report, err
		}
		if freed {
			report.FreedTables = append(report.FreedTables, t.ID)
		}
	}

	var seated []models.WaitlistEntry
	err := r.deps.DB.WithContext(ctx).
		Where("status = ? AND (assigned_table_id IS NULL OR assigned_table_id = '')", models.WaitlistSeated).
		Find(&seated).Error
	if err != nil {
		return report, err
	}
	for _, e := range seated {
		requeued, err := r.repairEntry(ctx, e.ID)
		if err != nil {
			return report, err
		}
		if requeued {
			report.RequeuedEntries = append(report.RequeuedEntries, e.ID)
		}
	}

	if len(report.FreedTables) > 0 || len(report.RequeuedEntries) > 0 {
		r.log.WithFields(logrus.Fields{
			"freed_tables":     len(report.FreedTables),
			"requeued_entries": len(report.RequeuedEntries),
		}).Warn("Repaired orphaned seatings")
	}
	return report, nil
}

// repairTable frees an occupied table whose guest link does not point back
// to it. The check is repeated under the lock.
func (r *Reconciler) repairTable(ctx context.Context, id string) (bool, error) {
	unlock := r.deps.Locks.Lock(tableKey(id))
	defer unlock()

	now := r.deps.Now()
	var table models.Table
	repaired := false

	err := r.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx, &table, id, "table"); err != nil {
			return err
		}
		if table.Status != models.TableOccupied {
			return nil
		}
		if table.CurrentGuestID != nil && *table.CurrentGuestID != "" {
			var count int64
			err := tx.Model(&models.WaitlistEntry{}).
				Where("id = ? AND status = ? AND assigned_table_id = ?", *table.CurrentGuestID, models.WaitlistSeated, table.ID).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return nil
			}
		}

		res := tx.Model(&models.Table{}).
			Where("id = ? AND version = ?", table.ID, table.Version).
			Updates(map[string]interface{}{
				"status":           models.TableFree,
				"current_guest_id": nil,
				"occupied_at":      nil,
				"version":          table.Version + 1,
				"updated_at":       now,
			})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		table.Status = models.TableFree
		table.CurrentGuestID = nil
		table.OccupiedAt = nil
		table.Version++
		table.UpdatedAt = now
		repaired = true
		return nil
	})
	if err != nil || !repaired {
		return false, err
	}

	r.deps.Publisher.Publish(realtime.TopicTableUpdated, table)
	r.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivitySystem,
		Action:      "reconcile_table",
		Description: fmt.Sprintf("Table %s had no seated guest and was freed", table.TableNumber),
		Metadata:    models.ActivityMetadata{TableID: table.ID, TargetName: table.TableNumber},
	})
	return true, nil
}

// repairEntry puts a seated entry with no table back in the queue.
func (r *Reconciler) repairEntry(ctx context.Context, id string) (bool, error) {
	unlock := r.deps.Locks.Lock(entryKey(id))
	defer unlock()

	now := r.deps.Now()
	var entry models.WaitlistEntry
	repaired := false

	err := r.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx, &entry, id, "waitlist entry"); err != nil {
			return err
		}
		if entry.Status != models.WaitlistSeated || (entry.AssignedTableID != nil && *entry.AssignedTableID != "") {
			return nil
		}

		RevertSeating(&entry)
		res := tx.Model(&models.WaitlistEntry{}).
			Where("id = ? AND version = ?", entry.ID, entry.Version).
			Updates(map[string]interface{}{
				"status":            entry.Status,
				"assigned_table_id": nil,
				"seated_at":         nil,
				"actual_wait_time":  nil,
				"version":           entry.Version + 1,
				"updated_at":        now,
			})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		entry.Version++
		entry.UpdatedAt = now
		repaired = true
		return nil
	})
	if err != nil || !repaired {
		return false, err
	}

	r.deps.Publisher.Publish(realtime.TopicWaitlistUpdated, entry)
	r.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivitySystem,
		Action:      "reconcile_waitlist",
		Description: fmt.Sprintf("%s had no table and was returned to the queue", entry.GuestName),
		Metadata:    models.ActivityMetadata{WaitlistID: entry.ID, TargetName: entry.GuestName},
	})
	return true, nil
}
