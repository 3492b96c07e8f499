package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/notify"
	"github.com/sarthaktajane07/DineFlow/realtime"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	MinPartySize  = 1
	MaxPartySize  = 20
	MaxNotesChars = 500
)

// Removal reasons
const (
	ReasonNoShow    = "no-show"
	ReasonCancelled = "cancelled"
	ReasonOther     = "other"
)

type AddWaitlistInput struct {
	GuestName              string `json:"guestName"`
	PhoneNumber            string `json:"phoneNumber"`
	PartySize              int    `json:"partySize"`
	Priority               string `json:"priority"`
	EstimatedWaitTime      int    `json:"estimatedWaitTime"`
	NotificationPreference string `json:"notificationPreference"`
	Notes                  string `json:"notes"`
}

type UpdateWaitlistInput struct {
	Status            *string `json:"status"`
	EstimatedWaitTime *int    `json:"estimatedWaitTime"`
	Notes             *string `json:"notes"`
	Priority          *string `json:"priority"`
	PartySize         *int    `json:"partySize"`
}

type WaitlistFilter struct {
	Status   string
	Priority string
}

// WaitlistView is an entry annotated with its live queue position.
type WaitlistView struct {
	models.WaitlistEntry
	QueuePosition *int `json:"queuePosition"`
}

type WaitlistStats struct {
	Waiting         int64 `json:"waiting"`
	Notified        int64 `json:"notified"`
	SeatedToday     int64 `json:"seatedToday"`
	AverageWaitTime int   `json:"averageWaitTime"`
	TotalGuests     int64 `json:"totalGuests"`
}

type WaitlistService struct {
	deps        Deps
	coordinator *Coordinator
	log         logrus.FieldLogger
}

func NewWaitlistService(deps Deps, coordinator *Coordinator) *WaitlistService {
	deps = deps.withDefaults()
	if coordinator == nil {
		coordinator = NewCoordinator(deps)
	}
	return &WaitlistService{
		deps:        deps,
		coordinator: coordinator,
		log:         deps.Log.WithField("component", "waitlist"),
	}
}

func validPriority(p string) bool {
	switch p {
	case models.PriorityNormal, models.PriorityVIP, models.PriorityReservation:
		return true
	}
	return false
}

func validPreference(p string) bool {
	switch p {
	case models.NotifySMS, models.NotifyWhatsApp, models.NotifyBoth:
		return true
	}
	return false
}

func (s *WaitlistService) Add(ctx context.Context, in AddWaitlistInput, actorID string) (*WaitlistView, error) {
	in.GuestName = strings.TrimSpace(in.GuestName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	}
	if in.NotificationPreference == "" {
		in.NotificationPreference = models.NotifySMS
	}

	verr := &ValidationError{}
	if in.GuestName == "" {
		verr.add("guestName", "is required")
	}
	if !utils.ValidatePhone(in.PhoneNumber) {
		verr.add("phoneNumber", "is not a valid phone number")
	}
	if in.PartySize < MinPartySize || in.PartySize > MaxPartySize {
		verr.add("partySize", fmt.Sprintf("must be between %d and %d", MinPartySize, MaxPartySize))
	}
	if !validPriority(in.Priority) {
		verr.add("priority", "must be one of normal, vip, reservation")
	}
	if !validPreference(in.NotificationPreference) {
		verr.add("notificationPreference", "must be one of sms, whatsapp, both")
	}
	if in.EstimatedWaitTime < 0 {
		verr.add("estimatedWaitTime", "must not be negative")
	}
	if len([]rune(in.Notes)) > MaxNotesChars {
		verr.add("notes", fmt.Sprintf("must be at most %d characters", MaxNotesChars))
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	entry := models.WaitlistEntry{
		GuestName:              in.GuestName,
		PhoneNumber:            utils.NormalizePhone(in.PhoneNumber),
		PartySize:              in.PartySize,
		Status:                 models.WaitlistWaiting,
		Priority:               in.Priority,
		EstimatedWaitTime:      in.EstimatedWaitTime,
		NotificationPreference: in.NotificationPreference,
		Notes:                  in.Notes,
		AddedByID:              strPtr(actorID),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.deps.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}

	view, err := s.annotate(ctx, entry)
	if err != nil {
		return nil, err
	}

	s.log.WithField("waitlist_id", entry.ID).Info("Guest added to waitlist")
	s.deps.Publisher.Publish(realtime.TopicWaitlistAdded, view)
	s.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityWaitlist,
		Action:      "add",
		Description: fmt.Sprintf("%s added to waitlist, party of %d", entry.GuestName, entry.PartySize),
		ActorID:     actorID,
		Metadata:    models.ActivityMetadata{WaitlistID: entry.ID, TargetName: entry.GuestName},
	})
	s.deps.Notifier.Dispatch(notify.Notification{
		Kind:       notify.KindConfirmation,
		WaitlistID: entry.ID,
		GuestName:  entry.GuestName,
		To:         entry.PhoneNumber,
		Body:       notify.WaitlistConfirmationMessage(entry.GuestName, entry.PartySize, entry.EstimatedWaitTime),
		Preference: entry.NotificationPreference,
		ActorID:    actorID,
	})
	return view, nil
}

func (s *WaitlistService) Get(ctx context.Context, id string) (*WaitlistView, error) {
	entry, err := s.find(s.deps.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, *entry)
}

// List returns entries oldest first, each with its live queue position.
func (s *WaitlistService) List(ctx context.Context, f WaitlistFilter) ([]WaitlistView, error) {
	q := s.deps.DB.WithContext(ctx).Model(&models.WaitlistEntry{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}

	var entries []models.WaitlistEntry
	if err := q.Order("created_at ASC").Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}

	waiting, err := s.waitingPool(ctx)
	if err != nil {
		return nil, err
	}
	positions := QueuePositions(waiting)

	views := make([]WaitlistView, 0, len(entries))
	for _, e := range entries {
		v := WaitlistView{WaitlistEntry: e}
		if pos, ok := positions[e.ID]; ok {
			p := pos
			v.QueuePosition = &p
		}
		views = append(views, v)
	}
	return views, nil
}

// Update changes descriptive fields. Status may only move to cancelled or
// no-show here; notify and seat have their own operations.
func (s *WaitlistService) Update(ctx context.Context, id string, in UpdateWaitlistInput, actorID string) (*WaitlistView, error) {
	verr := &ValidationError{}
	if in.EstimatedWaitTime != nil && *in.EstimatedWaitTime < 0 {
		verr.add("estimatedWaitTime", "must not be negative")
	}
	if in.Notes != nil && len([]rune(*in.Notes)) > MaxNotesChars {
		verr.add("notes", fmt.Sprintf("must be at most %d characters", MaxNotesChars))
	}
	if in.Priority != nil && !validPriority(*in.Priority) {
		verr.add("priority", "must be one of normal, vip, reservation")
	}
	if in.PartySize != nil && (*in.PartySize < MinPartySize || *in.PartySize > MaxPartySize) {
		verr.add("partySize", fmt.Sprintf("must be between %d and %d", MinPartySize, MaxPartySize))
	}
	if in.Status != nil && !ValidWaitlistStatus(*in.Status) {
		verr.add("status", "is not a valid waitlist status")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	var view *WaitlistView
	entry, err := s.mutate(ctx, id, func(e *models.WaitlistEntry) error {
		if in.Status != nil && *in.Status != e.Status {
			switch *in.Status {
			case models.WaitlistCancelled:
				if err := MarkCancelled(e, s.deps.Now()); err != nil {
					return err
				}
			case models.WaitlistNoShow:
				if err := MarkNoShow(e); err != nil {
					return err
				}
			default:
				return &InvalidStateError{
					Action: "change status to " + *in.Status,
					From:   e.Status,
					Reason: "status " + *in.Status + " is set by its own action",
				}
			}
		}
		if in.EstimatedWaitTime != nil {
			e.EstimatedWaitTime = *in.EstimatedWaitTime
		}
		if in.Notes != nil {
			e.Notes = *in.Notes
		}
		if in.Priority != nil {
			e.Priority = *in.Priority
		}
		if in.PartySize != nil {
			e.PartySize = *in.PartySize
		}
		return nil
	}, func(e *models.WaitlistEntry) error {
		var err error
		if view, err = s.annotate(ctx, *e); err != nil {
			return err
		}
		s.deps.Publisher.Publish(realtime.TopicWaitlistUpdated, view)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityWaitlist,
		Action:      "update",
		Description: fmt.Sprintf("Waitlist entry for %s updated", entry.GuestName),
		ActorID:     actorID,
		Metadata:    models.ActivityMetadata{WaitlistID: entry.ID, TargetName: entry.GuestName},
	})
	return view, nil
}

// Notify marks the guest notified and hands the table ready message to the
// dispatcher. Delivery failures do not undo the transition.
func (s *WaitlistService) Notify(ctx context.Context, id, tableNumber, actorID string) (*WaitlistView, error) {
	var view *WaitlistView
	entry, err := s.mutate(ctx, id, func(e *models.WaitlistEntry) error {
		return MarkNotified(e, s.deps.Now())
	}, func(e *models.WaitlistEntry) error {
		view = &WaitlistView{WaitlistEntry: *e}
		s.deps.Publisher.Publish(realtime.TopicWaitlistUpdated, view)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Notifier.Dispatch(notify.Notification{
		Kind:       notify.KindTableReady,
		WaitlistID: entry.ID,
		GuestName:  entry.GuestName,
		To:         entry.PhoneNumber,
		Body:       notify.TableReadyMessage(entry.GuestName, strings.TrimSpace(tableNumber), s.deps.Restaurant),
		Preference: entry.NotificationPreference,
		ActorID:    actorID,
	})

	s.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityWaitlist,
		Action:      "notify",
		Description: fmt.Sprintf("%s notified that their table is ready", entry.GuestName),
		ActorID:     actorID,
		Metadata:    models.ActivityMetadata{WaitlistID: entry.ID, TargetName: entry.GuestName},
	})
	return view, nil
}

func (s *WaitlistService) Seat(ctx context.Context, id, tableID, actorID string) (*SeatResult, error) {
	return s.coordinator.Seat(ctx, id, tableID, actorID)
}

// Remove takes the entry out of the queue. no-show and cancelled keep the
// record; other or no reason deletes it.
func (s *WaitlistService) Remove(ctx context.Context, id, reason, actorID string) error {
	published := func(e *models.WaitlistEntry) error {
		s.deps.Publisher.Publish(realtime.TopicWaitlistRemoved, map[string]string{"id": e.ID, "reason": reason})
		return nil
	}

	var entry *models.WaitlistEntry
	var err error

	switch reason {
	case ReasonNoShow:
		entry, err = s.mutate(ctx, id, MarkNoShow, published)
	case ReasonCancelled:
		entry, err = s.mutate(ctx, id, func(e *models.WaitlistEntry) error {
			return MarkCancelled(e, s.deps.Now())
		}, published)
	case "", ReasonOther:
		entry, err = s.hardDelete(ctx, id, published)
	default:
		return &ValidationError{Fields: map[string]string{
			"reason": "must be one of no-show, cancelled, other",
		}}
	}
	if err != nil {
		return err
	}

	action := "remove"
	if reason == ReasonNoShow || reason == ReasonCancelled {
		action = reason
	}
	s.deps.Recorder.Record(ctx, Activity{
		Type:        models.ActivityWaitlist,
		Action:      action,
		Description: fmt.Sprintf("%s removed from waitlist", entry.GuestName),
		ActorID:     actorID,
		Metadata:    models.ActivityMetadata{WaitlistID: entry.ID, TargetName: entry.GuestName},
	})
	return nil
}

func (s *WaitlistService) hardDelete(ctx context.Context, id string, committed func(*models.WaitlistEntry) error) (*models.WaitlistEntry, error) {
	unlock := s.deps.Locks.Lock(entryKey(id))
	defer unlock()

	var entry *models.WaitlistEntry
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if entry, err = s.find(tx, id); err != nil {
			return err
		}
		if entry.Status == models.WaitlistSeated {
			return &ConflictError{Reason: "a seated guest cannot be deleted"}
		}
		return tx.Delete(&models.WaitlistEntry{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	if err := committed(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Stats reports queue counts and today's seating figures.
func (s *WaitlistService) Stats(ctx context.Context) (*WaitlistStats, error) {
	db := s.deps.DB.WithContext(ctx)
	stats := &WaitlistStats{}

	if err := db.Model(&models.WaitlistEntry{}).Where("status = ?", models.WaitlistWaiting).Count(&stats.Waiting).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.WaitlistEntry{}).Where("status = ?", models.WaitlistNotified).Count(&stats.Notified).Error; err != nil {
		return nil, err
	}

	startOfDay := utils.BeginningOfDay(s.deps.Now()).UTC()
	var seated []models.WaitlistEntry
	err := db.Select("id", "actual_wait_time").
		Where("status = ? AND seated_at >= ?", models.WaitlistSeated, startOfDay).
		Find(&seated).Error
	if err != nil {
		return nil, err
	}

	stats.SeatedToday = int64(len(seated))
	if len(seated) > 0 {
		total := 0
		for _, e := range seated {
			if e.ActualWaitTime != nil {
				total += *e.ActualWaitTime
			}
		}
		stats.AverageWaitTime = int(math.Round(float64(total) / float64(len(seated))))
	}
	stats.TotalGuests = stats.Waiting + stats.Notified
	return stats, nil
}

// mutate runs fn against the locked entry and persists the result with a
// version check. committed runs after the commit but before the entry lock
// is released, so broadcasts for one entry leave in commit order.
func (s *WaitlistService) mutate(ctx context.Context, id string, fn func(*models.WaitlistEntry) error, committed func(*models.WaitlistEntry) error) (*models.WaitlistEntry, error) {
	unlock := s.deps.Locks.Lock(entryKey(id))
	defer unlock()

	now := s.deps.Now()
	var entry models.WaitlistEntry

	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx, &entry, id, "waitlist entry"); err != nil {
			return err
		}
		version := entry.Version
		if err := fn(&entry); err != nil {
			return err
		}
		applySeatTimestamps(&entry, now)

		res := tx.Model(&models.WaitlistEntry{}).
			Where("id = ? AND version = ?", entry.ID, version).
			Updates(map[string]interface{}{
				"status":              entry.Status,
				"priority":            entry.Priority,
				"party_size":          entry.PartySize,
				"estimated_wait_time": entry.EstimatedWaitTime,
				"notes":               entry.Notes,
				"notified_at":         entry.NotifiedAt,
				"cancelled_at":        entry.CancelledAt,
				"seated_at":           entry.SeatedAt,
				"actual_wait_time":    entry.ActualWaitTime,
				"version":             version + 1,
				"updated_at":          now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConflictError{Reason: "waitlist entry was modified concurrently, reload and retry"}
		}
		entry.Version = version + 1
		entry.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if committed != nil {
		if err := committed(&entry); err != nil {
			return nil, err
		}
	}
	return &entry, nil
}

func (s *WaitlistService) find(db *gorm.DB, id string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	err := db.First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "waitlist entry", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *WaitlistService) waitingPool(ctx context.Context) ([]models.WaitlistEntry, error) {
	var pool []models.WaitlistEntry
	err := s.deps.DB.WithContext(ctx).
		Select("id", "status", "created_at").
		Where("status = ?", models.WaitlistWaiting).
		Find(&pool).Error
	return pool, err
}

func (s *WaitlistService) annotate(ctx context.Context, entry models.WaitlistEntry) (*WaitlistView, error) {
	view := &WaitlistView{WaitlistEntry: entry}
	if entry.Status != models.WaitlistWaiting {
		return view, nil
	}
	pool, err := s.waitingPool(ctx)
	if err != nil {
		return nil, err
	}
	if pos, ok := QueuePosition(&entry, pool); ok {
		view.QueuePosition = &pos
	}
	return view, nil
}
