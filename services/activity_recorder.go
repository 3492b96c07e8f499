package services

import (
	"context"
	"time"

	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/notify"
	"github.com/sarthaktajane07/DineFlow/realtime"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultActivityLimit = 50

type Activity struct {
	Type        string
	Action      string
	Description string
	ActorID     string
	Metadata    models.ActivityMetadata
}

// ActivityRecorder appends audit entries. Recording never fails the caller.
type ActivityRecorder struct {
	db  *gorm.DB
	pub Publisher
	log logrus.FieldLogger
	now func() time.Time
}

func NewActivityRecorder(db *gorm.DB, pub Publisher, log logrus.FieldLogger) *ActivityRecorder {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &ActivityRecorder{
		db:  db,
		pub: pub,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *ActivityRecorder) Record(ctx context.Context, a Activity) {
	row := models.ActivityLog{
		Type:          a.Type,
		Action:        a.Action,
		Description:   a.Description,
		PerformedByID: strPtr(a.ActorID),
		Metadata:      datatypes.NewJSONType(a.Metadata),
		CreatedAt:     r.now(),
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		depErr := &DependencyError{Dependency: "activity recorder", Err: err}
		r.log.WithError(depErr).WithField("action", a.Action).Error("Failed to record activity")
		return
	}
	r.pub.Publish(realtime.TopicActivityNew, row)
}

func (r *ActivityRecorder) Recent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	var logs []models.ActivityLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// NotificationHook broadcasts finished deliveries and records them.
func (r *ActivityRecorder) NotificationHook() notify.ResultHook {
	return func(report notify.DeliveryReport) {
		r.pub.Publish(realtime.TopicNotificationSent, report)

		desc := "Notification sent to " + report.GuestName
		if !report.Success() {
			desc = "Notification to " + report.GuestName + " failed"
		}
		r.Record(context.Background(), Activity{
			Type:        models.ActivityNotification,
			Action:      report.Kind,
			Description: desc,
			ActorID:     report.ActorID,
			Metadata: models.ActivityMetadata{
				WaitlistID: report.WaitlistID,
				TargetName: report.GuestName,
			},
		})
	}
}
