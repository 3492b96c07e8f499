package services

import (
	"time"

	"github.com/sarthaktajane07/DineFlow/notify"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Publisher receives every committed change. realtime.Hub implements it.
type Publisher interface {
	Publish(topic string, entity interface{})
}

// Notifier hands a message to the delivery pipeline without waiting for it.
type Notifier interface {
	Dispatch(n notify.Notification)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

type nopNotifier struct{}

func (nopNotifier) Dispatch(notify.Notification) {}

// Deps are the process scoped collaborators shared by the services.
type Deps struct {
	DB         *gorm.DB
	Publisher  Publisher
	Recorder   *ActivityRecorder
	Notifier   Notifier
	Locks      *KeyedMutex
	Log        logrus.FieldLogger
	Now        func() time.Time
	Restaurant string
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = nopPublisher{}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Locks == nil {
		d.Locks = NewKeyedMutex()
	}
	if d.Log == nil {
		d.Log = utils.DiscardLogger()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Restaurant == "" {
		d.Restaurant = "DineFlow"
	}
	if d.Recorder == nil {
		d.Recorder = NewActivityRecorder(d.DB, d.Publisher, d.Log)
		d.Recorder.now = d.Now
	}
	return d
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
