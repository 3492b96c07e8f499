package services

import (
	"sync"
	"testing"
	"time"

	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/notify"
	"github.com/sarthaktajane07/DineFlow/realtime"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitlistScenario_AddNotifySeat(t *testing.T) {
	env := newTestEnv(t)
	table := env.createTable(t, "12", 4)

	view, err := env.waitlist.Add(ctxBG, AddWaitlistInput{
		GuestName:   "A. Smith",
		PartySize:   4,
		PhoneNumber: "+15551230000",
	}, "host-1")
	require.NoError(t, err)
	assert.Equal(t, models.WaitlistWaiting, view.Status)
	require.NotNil(t, view.QueuePosition)
	assert.Equal(t, 1, *view.QueuePosition)
	assert.Equal(t, models.PriorityNormal, view.Priority)
	assert.Equal(t, models.NotifySMS, view.NotificationPreference)

	sent := env.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.KindConfirmation, sent[0].Kind)
	assert.Contains(t, sent[0].Body, "~15 minutes")

	env.clock.Advance(12 * time.Minute)
	notified, err := env.waitlist.Notify(ctxBG, view.ID, "12", "host-1")
	require.NoError(t, err)
	assert.Equal(t, models.WaitlistNotified, notified.Status)
	assert.NotNil(t, notified.NotifiedAt)
	assert.Nil(t, notified.QueuePosition)

	sent = env.notifier.all()
	require.Len(t, sent, 2)
	assert.Equal(t, notify.KindTableReady, sent[1].Kind)
	assert.Contains(t, sent[1].Body, "table #12 is ready at DineFlow")

	env.pub.reset()
	env.clock.Advance(8 * time.Minute)
	res, err := env.waitlist.Seat(ctxBG, view.ID, table.ID, "host-1")
	require.NoError(t, err)
	assert.Equal(t, 20, *res.Entry.ActualWaitTime)
	assert.Equal(t, view.ID, *res.Table.CurrentGuestID)
	assert.Equal(t, 1, env.pub.count(realtime.TopicTableUpdated))
	assert.Equal(t, 1, env.pub.count(realtime.TopicWaitlistUpdated))
}

func TestAddToWaitlist_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.waitlist.Add(ctxBG, AddWaitlistInput{
		GuestName:              "",
		PhoneNumber:            "call me",
		PartySize:              0,
		Priority:               "gold",
		NotificationPreference: "pigeon",
	}, "")
	require.True(t, IsValidation(err))

	fields := err.(*ValidationError).Fields
	for _, f := range []string{"guestName", "phoneNumber", "partySize", "priority", "notificationPreference"} {
		assert.Contains(t, fields, f)
	}
	assert.Empty(t, env.notifier.all())
}

func TestAddToWaitlist_ConcurrentPositionsAreUnique(t *testing.T) {
	env := newTestEnv(t)

	const guests = 10
	var wg sync.WaitGroup
	for i := 0; i < guests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.waitlist.Add(ctxBG, AddWaitlistInput{GuestName: "G", PhoneNumber: "+15551230000", PartySize: 2}, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	views, err := env.waitlist.List(ctxBG, WaitlistFilter{Status: models.WaitlistWaiting})
	require.NoError(t, err)
	require.Len(t, views, guests)

	seen := map[int]bool{}
	for i, v := range views {
		require.NotNil(t, v.QueuePosition)
		assert.False(t, seen[*v.QueuePosition], "duplicate position %d", *v.QueuePosition)
		seen[*v.QueuePosition] = true
		assert.Equal(t, i+1, *v.QueuePosition)
	}
}

func TestListWaitlist_PositionsShiftWhenGuestLeaves(t *testing.T) {
	env := newTestEnv(t)
	first := env.addGuest(t, "First", 2)
	env.clock.Advance(time.Minute)
	second := env.addGuest(t, "Second", 2)
	env.clock.Advance(time.Minute)
	third := env.addGuest(t, "Third", 2)

	assert.Equal(t, 3, *third.QueuePosition)

	require.NoError(t, env.waitlist.Remove(ctxBG, first.ID, ReasonCancelled, ""))

	got, err := env.waitlist.Get(ctxBG, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, *got.QueuePosition)

	views, err := env.waitlist.List(ctxBG, WaitlistFilter{})
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Nil(t, views[0].QueuePosition)
	assert.Equal(t, 2, *views[2].QueuePosition)
}

func TestNotifyGuest_OnlyFromWaiting(t *testing.T) {
	env := newTestEnv(t)
	guest := env.addGuest(t, "A", 2)

	_, err := env.waitlist.Notify(ctxBG, guest.ID, "", "")
	require.NoError(t, err)

	_, err = env.waitlist.Notify(ctxBG, guest.ID, "", "")
	assert.True(t, IsInvalidState(err))
	assert.Len(t, env.notifier.all(), 2, "confirmation plus one table ready message")

	_, err = env.waitlist.Notify(ctxBG, "missing", "", "")
	assert.True(t, IsNotFound(err))
}

func TestUpdateWaitlistEntry(t *testing.T) {
	env := newTestEnv(t)
	guest := env.addGuest(t, "A", 2)

	wait := 30
	notes := "window seat"
	vip := models.PriorityVIP
	party := 5
	view, err := env.waitlist.Update(ctxBG, guest.ID, UpdateWaitlistInput{
		EstimatedWaitTime: &wait,
		Notes:             &notes,
		Priority:          &vip,
		PartySize:         &party,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 30, view.EstimatedWaitTime)
	assert.Equal(t, "window seat", view.Notes)
	assert.Equal(t, models.PriorityVIP, view.Priority)
	assert.Equal(t, 5, view.PartySize)
	assert.Equal(t, 1, *view.QueuePosition)

	seated := models.WaitlistSeated
	_, err = env.waitlist.Update(ctxBG, guest.ID, UpdateWaitlistInput{Status: &seated}, "")
	assert.True(t, IsInvalidState(err))

	bogus := "lost"
	_, err = env.waitlist.Update(ctxBG, guest.ID, UpdateWaitlistInput{Status: &bogus}, "")
	assert.True(t, IsValidation(err))

	cancelled := models.WaitlistCancelled
	view, err = env.waitlist.Update(ctxBG, guest.ID, UpdateWaitlistInput{Status: &cancelled}, "")
	require.NoError(t, err)
	assert.Equal(t, models.WaitlistCancelled, view.Status)
	assert.NotNil(t, view.CancelledAt)

	waiting := models.WaitlistWaiting
	_, err = env.waitlist.Update(ctxBG, guest.ID, UpdateWaitlistInput{Status: &waiting}, "")
	assert.True(t, IsInvalidState(err), "terminal status is never revisited")
}

func TestUpdateWaitlistEntry_ResaveKeepsWaitTime(t *testing.T) {
	env := newTestEnv(t)
	table := env.createTable(t, "1", 4)
	guest := env.addGuest(t, "A", 2)
	env.clock.Advance(10 * time.Minute)
	_, err := env.waitlist.Seat(ctxBG, guest.ID, table.ID, "")
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)
	notes := "birthday"
	view, err := env.waitlist.Update(ctxBG, guest.ID, UpdateWaitlistInput{Notes: &notes}, "")
	require.NoError(t, err)
	assert.Equal(t, 10, *view.ActualWaitTime)
	assert.Equal(t, 10, *env.loadEntry(t, guest.ID).ActualWaitTime)
}

func TestRemoveFromWaitlist(t *testing.T) {
	env := newTestEnv(t)
	noShow := env.addGuest(t, "NoShow", 2)
	cancelled := env.addGuest(t, "Cancelled", 2)
	withdrawn := env.addGuest(t, "Withdrawn", 2)

	require.NoError(t, env.waitlist.Remove(ctxBG, noShow.ID, ReasonNoShow, ""))
	e := env.loadEntry(t, noShow.ID)
	assert.Equal(t, models.WaitlistNoShow, e.Status)
	assert.Nil(t, e.CancelledAt)

	require.NoError(t, env.waitlist.Remove(ctxBG, cancelled.ID, ReasonCancelled, ""))
	e = env.loadEntry(t, cancelled.ID)
	assert.Equal(t, models.WaitlistCancelled, e.Status)
	assert.NotNil(t, e.CancelledAt)

	require.NoError(t, env.waitlist.Remove(ctxBG, withdrawn.ID, "", ""))
	var count int64
	env.db.Model(&models.WaitlistEntry{}).Where("id = ?", withdrawn.ID).Count(&count)
	assert.Zero(t, count)

	assert.Equal(t, 3, env.pub.count(realtime.TopicWaitlistRemoved))

	assert.True(t, IsInvalidState(env.waitlist.Remove(ctxBG, noShow.ID, ReasonNoShow, "")))
	assert.True(t, IsNotFound(env.waitlist.Remove(ctxBG, withdrawn.ID, "", "")))
}

func TestRemoveFromWaitlist_UnknownReasonKeepsEntry(t *testing.T) {
	env := newTestEnv(t)
	guest := env.addGuest(t, "Typo", 2)

	for _, reason := range []string{"noshow", "Cancelled", "walked out"} {
		err := env.waitlist.Remove(ctxBG, guest.ID, reason, "")
		require.Error(t, err, reason)
		assert.True(t, IsValidation(err), reason)
	}

	e := env.loadEntry(t, guest.ID)
	assert.Equal(t, models.WaitlistWaiting, e.Status)
	assert.Zero(t, env.pub.count(realtime.TopicWaitlistRemoved))

	require.NoError(t, env.waitlist.Remove(ctxBG, guest.ID, ReasonOther, ""))
	var count int64
	env.db.Model(&models.WaitlistEntry{}).Where("id = ?", guest.ID).Count(&count)
	assert.Zero(t, count)
}

// stallingPublisher holds up the first event on topic so a second writer
// has the chance to overtake it.
type stallingPublisher struct {
	*recordingPublisher
	topic   string
	delay   time.Duration
	once    sync.Once
	entered chan struct{}
}

func (p *stallingPublisher) Publish(topic string, entity interface{}) {
	if topic == p.topic {
		stall := false
		p.once.Do(func() { stall = true })
		if stall {
			close(p.entered)
			time.Sleep(p.delay)
		}
	}
	p.recordingPublisher.Publish(topic, entity)
}

func TestUpdateWaitlistEntry_BroadcastsInCommitOrder(t *testing.T) {
	pub := &stallingPublisher{
		recordingPublisher: &recordingPublisher{},
		topic:              realtime.TopicWaitlistUpdated,
		delay:              200 * time.Millisecond,
		entered:            make(chan struct{}),
	}
	deps := Deps{
		DB:        setupTestDB(t),
		Publisher: pub,
		Log:       utils.DiscardLogger(),
		Now:       newFakeClock().Now,
	}.withDefaults()
	waitlist := NewWaitlistService(deps, NewCoordinator(deps))

	guest, err := waitlist.Add(ctxBG, AddWaitlistInput{GuestName: "Ada", PhoneNumber: "+15551230000", PartySize: 2}, "")
	require.NoError(t, err)

	vip := models.PriorityVIP
	reservation := models.PriorityReservation

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := waitlist.Update(ctxBG, guest.ID, UpdateWaitlistInput{Priority: &vip}, "")
		assert.NoError(t, err)
	}()

	<-pub.entered
	go func() {
		defer wg.Done()
		_, err := waitlist.Update(ctxBG, guest.ID, UpdateWaitlistInput{Priority: &reservation}, "")
		assert.NoError(t, err)
	}()
	wg.Wait()

	var updates []*WaitlistView
	pub.mu.Lock()
	for _, ev := range pub.events {
		if ev.Topic == realtime.TopicWaitlistUpdated {
			updates = append(updates, ev.Entity.(*WaitlistView))
		}
	}
	pub.mu.Unlock()

	require.Len(t, updates, 2)
	assert.Equal(t, models.PriorityVIP, updates[0].Priority)
	assert.Equal(t, models.PriorityReservation, updates[1].Priority)
	assert.Less(t, updates[0].Version, updates[1].Version)

	var stored models.WaitlistEntry
	require.NoError(t, deps.DB.First(&stored, "id = ?", guest.ID).Error)
	assert.Equal(t, stored.Version, updates[1].Version)
	assert.Equal(t, stored.Priority, updates[1].Priority)
}

func TestWaitlistStats(t *testing.T) {
	env := newTestEnv(t)
	t1 := env.createTable(t, "1", 4)
	t2 := env.createTable(t, "2", 4)

	a := env.addGuest(t, "A", 2)
	b := env.addGuest(t, "B", 3)
	env.addGuest(t, "C", 4)
	d := env.addGuest(t, "D", 2)

	_, err := env.waitlist.Notify(ctxBG, d.ID, "", "")
	require.NoError(t, err)

	env.clock.Advance(10 * time.Minute)
	_, err = env.waitlist.Seat(ctxBG, a.ID, t1.ID, "")
	require.NoError(t, err)
	env.clock.Advance(5 * time.Minute)
	_, err = env.waitlist.Seat(ctxBG, b.ID, t2.ID, "")
	require.NoError(t, err)

	stats, err := env.waitlist.Stats(ctxBG)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Waiting)
	assert.Equal(t, int64(1), stats.Notified)
	assert.Equal(t, int64(2), stats.SeatedToday)
	assert.Equal(t, 13, stats.AverageWaitTime)
	assert.Equal(t, int64(2), stats.TotalGuests)

	env.clock.Advance(24 * time.Hour)
	stats, err = env.waitlist.Stats(ctxBG)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.SeatedToday)
	assert.Equal(t, 0, stats.AverageWaitTime)
}
