package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/realtime"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	MinSeats = 1
	MaxSeats = 20

	DefaultZone = "main"
)

type CreateTableInput struct {
	TableNumber    string           `json:"tableNumber"`
	Seats          int              `json:"seats"`
	Zone           string           `json:"zone"`
	Shape          string           `json:"shape"`
	Position       *models.Position `json:"position"`
	AssignedWaiter *string          `json:"assignedWaiter"`
}

// UpdateTableInput uses pointers so absent fields are left untouched. An
// empty AssignedWaiter clears the assignment.
type UpdateTableInput struct {
	Status         *string          `json:"status"`
	Seats          *int             `json:"seats"`
	Zone           *string          `json:"zone"`
	Shape          *string          `json:"shape"`
	Position       *models.Position `json:"position"`
	AssignedWaiter *string          `json:"assignedWaiter"`
	IsActive       *bool            `json:"isActive"`
}

type TableFilter struct {
	Status   string
	Zone     string
	IsActive *bool
}

type TableStats struct {
	Total         int64   `json:"total"`
	Free          int64   `json:"free"`
	Occupied      int64   `json:"occupied"`
	Reserved      int64   `json:"reserved"`
	Cleaning      int64   `json:"cleaning"`
	OccupancyRate float64 `json:"occupancyRate"`
}

type TableService struct {
	deps Deps
	log  logrus.FieldLogger
}

func NewTableService(deps Deps) *TableService {
	deps = deps.withDefaults()
	return &TableService{deps: deps, log: deps.Log.WithField("component", "tables")}
}

func validShape(shape string) bool {
	switch shape {
	case models.ShapeSquare, models.ShapeRound, models.ShapeRectangle:
		return true
	}
	return false
}

func (s *TableService) Create(ctx context.Context, in CreateTableInput, actorID string) (*models.Table, error) {
	in.TableNumber = strings.TrimSpace(in.TableNumber)
	in.Zone = strings.TrimSpace(in.Zone)
	if in.Zone == "" {
		in.Zone = DefaultZone
	}
	if in.Shape == "" {
		in.Shape = models.ShapeSquare
	}

	verr := &ValidationError{}
	if in.TableNumber == "" {
		verr.add("tableNumber", "is required")
	}
	if in.Seats < MinSeats || in.Seats > MaxSeats {
		verr.add("seats", fmt.Sprintf("must be between %d and %d", MinSeats, MaxSeats))
	}
	if !validShape(in.Shape) {
		verr.add("shape", "must be one of square, round, rectangle")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	table := models.Table{
		TableNumber:      in.TableNumber,
		Seats:            in.Seats,
		Status:           models.TableFree,
		Zone:             in.Zone,
		Shape:            in.Shape,
		AssignedWaiterID: nonEmpty(in.AssignedWaiter),
		IsActive:         true,
	}
	if in.Position != nil {
		table.Position = *in.Position
	}

	now := s.deps.Now()
	table.CreatedAt = now
	table.UpdatedAt = now

	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Table{}).Where("table_number = ?", table.TableNumber).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{Reason: "table number already exists"}
		}
		return tx.Create(&table).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("table_id", table.ID).Info("Table created")
	s.deps.Publisher.Publish(realtime.TopicTableCreated, table)
	s.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityTable,
		Action:      "create",
		Description: fmt.Sprintf("Table %s created in %s", table.TableNumber, table.Zone),
		ActorID:     actorID,
		Metadata:    models.ActivityMetadata{TableID: table.ID, TargetName: table.TableNumber},
	})
	return &table, nil
}

func (s *TableService) Get(ctx context.Context, id string) (*models.Table, error) {
	var table models.Table
	err := s.deps.DB.WithContext(ctx).First(&table, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "table", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (s *TableService) List(ctx context.Context, f TableFilter) ([]models.Table, error) {
	q := s.deps.DB.WithContext(ctx).Model(&models.Table{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Zone != "" {
		q = q.Where("zone = ?", f.Zone)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}

	var tables []models.Table
	if err := q.Order("table_number ASC").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

// Update applies in to the table. Leaving occupied closes the open service
// history row of the seated guest; the guest's entry stays seated.
func (s *TableService) Update(ctx context.Context, id string, in UpdateTableInput, actorID string) (*models.Table, error) {
	unlock := s.deps.Locks.Lock(tableKey(id))
	defer unlock()

	now := s.deps.Now()
	var table models.Table
	var before string

	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx, &table, id, "table"); err != nil {
			return err
		}
		before = table.Status
		version := table.Version

		verr := &ValidationError{}
		if in.Seats != nil && (*in.Seats < MinSeats || *in.Seats > MaxSeats) {
			verr.add("seats", fmt.Sprintf("must be between %d and %d", MinSeats, MaxSeats))
		}
		if in.Shape != nil && !validShape(*in.Shape) {
			verr.add("shape", "must be one of square, round, rectangle")
		}
		if in.Zone != nil && strings.TrimSpace(*in.Zone) == "" {
			verr.add("zone", "must not be empty")
		}
		if err := verr.orNil(); err != nil {
			return err
		}

		var released *string
		if in.Status != nil {
			var err error
			if released, err = ApplyTableStatus(&table, *in.Status, now); err != nil {
				return err
			}
		}
		if in.IsActive != nil && !*in.IsActive && table.Status == models.TableOccupied {
			return &ConflictError{Reason: "cannot deactivate an occupied table"}
		}

		if in.Seats != nil {
			table.Seats = *in.Seats
		}
		if in.Shape != nil {
			table.Shape = *in.Shape
		}
		if in.Zone != nil {
			table.Zone = strings.TrimSpace(*in.Zone)
		}
		if in.Position != nil {
			table.Position = *in.Position
		}
		if in.AssignedWaiter != nil {
			table.AssignedWaiterID = nonEmpty(in.AssignedWaiter)
		}
		if in.IsActive != nil {
			table.IsActive = *in.IsActive
		}

		res := tx.Model(&models.Table{}).
			Where("id = ? AND version = ?", table.ID, version).
			Updates(map[string]interface{}{
				"status":             table.Status,
				"seats":              table.Seats,
				"shape":              table.Shape,
				"zone":               table.Zone,
				"position_x":         table.Position.X,
				"position_y":         table.Position.Y,
				"assigned_waiter_id": table.AssignedWaiterID,
				"current_guest_id":   table.CurrentGuestID,
				"occupied_at":        table.OccupiedAt,
				"is_active":          table.IsActive,
				"version":            version + 1,
				"updated_at":         now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConflictError{Reason: "table was modified concurrently, reload and retry"}
		}
		table.Version = version + 1
		table.UpdatedAt = now

		if released != nil {
			return closeHistory(tx, table.ID, *released, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The deferred unlock has not run yet, so events for this table leave in commit order.
	s.deps.Publisher.Publish(realtime.TopicTableUpdated, table)

	desc := fmt.Sprintf("Table %s updated", table.TableNumber)
	if before != table.Status {
		desc = fmt.Sprintf("Table %s changed from %s to %s", table.TableNumber, before, table.Status)
	}
	s.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityTable,
		Action:      "update",
		Description: desc,
		ActorID:     actorID,
		Metadata:    models.ActivityMetadata{TableID: table.ID, TargetName: table.TableNumber},
	})
	return &table, nil
}

func closeHistory(tx *gorm.DB, tableID, entryID string, now time.Time) error {
	var open []models.ServiceHistory
	err := tx.Where("table_id = ? AND waitlist_entry_id = ? AND left_at IS NULL", tableID, entryID).
		Find(&open).Error
	if err != nil {
		return err
	}
	for i := range open {
		if CloseServiceHistory(&open[i], now) {
			if err := tx.Model(&open[i]).Updates(map[string]interface{}{
				"left_at":          open[i].LeftAt,
				"service_duration": open[i].ServiceDuration,
			}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// Delete deactivates the table. Rows are kept for history.
func (s *TableService) Delete(ctx context.Context, id, actorID string) (*models.Table, error) {
	unlock := s.deps.Locks.Lock(tableKey(id))
	defer unlock()

	now := s.deps.Now()
	var table models.Table

	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx, &table, id, "table"); err != nil {
			return err
		}
		if table.Status == models.TableOccupied {
			return &ConflictError{Reason: "cannot delete an occupied table"}
		}

		res := tx.Model(&models.Table{}).
			Where("id = ? AND status <> ?", table.ID, models.TableOccupied).
			Updates(map[string]interface{}{
				"is_active":  false,
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConflictError{Reason: "cannot delete an occupied table"}
		}
		table.IsActive = false
		table.Version++
		table.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Publisher.Publish(realtime.TopicTableDeleted, table)
	s.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityTable,
		Action:      "delete",
		Description: fmt.Sprintf("Table %s removed", table.TableNumber),
		ActorID:     actorID,
		Metadata:    models.ActivityMetadata{TableID: table.ID, TargetName: table.TableNumber},
	})
	return &table, nil
}

// Stats counts active tables only.
func (s *TableService) Stats(ctx context.Context) (*TableStats, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := s.deps.DB.WithContext(ctx).Model(&models.Table{}).
		Select("status, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &TableStats{}
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Status {
		case models.TableFree:
			stats.Free = r.Count
		case models.TableOccupied:
			stats.Occupied = r.Count
		case models.TableReserved:
			stats.Reserved = r.Count
		case models.TableCleaning:
			stats.Cleaning = r.Count
		}
	}
	if stats.Total > 0 {
		rate := float64(stats.Occupied) / float64(stats.Total) * 100
		stats.OccupancyRate = math.Round(rate*10) / 10
	}
	return stats, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	return strPtr(strings.TrimSpace(*s))
}
