package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sarthaktajane07/DineFlow/database"
	"github.com/sarthaktajane07/DineFlow/models"
	"github.com/sarthaktajane07/DineFlow/notify"
	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a private in-memory database per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type publishedEvent struct {
	Topic  string
	Entity interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(topic string, entity interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Entity: entity})
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Topic)
	}
	return out
}

func (p *recordingPublisher) count(topic string) int {
	n := 0
	for _, t := range p.topics() {
		if t == topic {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *recordingNotifier) Dispatch(msg notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) all() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification(nil), n.sent...)
}

type testEnv struct {
	db          *gorm.DB
	clock       *fakeClock
	pub         *recordingPublisher
	notifier    *recordingNotifier
	deps        Deps
	tables      *TableService
	waitlist    *WaitlistService
	coordinator *Coordinator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		db:       setupTestDB(t),
		clock:    newFakeClock(),
		pub:      &recordingPublisher{},
		notifier: &recordingNotifier{},
	}
	env.deps = Deps{
		DB:        env.db,
		Publisher: env.pub,
		Notifier:  env.notifier,
		Locks:     NewKeyedMutex(),
		Log:       utils.DiscardLogger(),
		Now:       env.clock.Now,
	}.withDefaults()

	env.tables = NewTableService(env.deps)
	env.coordinator = NewCoordinator(env.deps)
	env.waitlist = NewWaitlistService(env.deps, env.coordinator)
	return env
}

func (env *testEnv) createTable(t *testing.T, number string, seats int) *models.Table {
	t.Helper()
	table, err := env.tables.Create(ctxBG, CreateTableInput{TableNumber: number, Seats: seats}, "")
	require.NoError(t, err)
	return table
}

func (env *testEnv) addGuest(t *testing.T, name string, party int) *WaitlistView {
	t.Helper()
	view, err := env.waitlist.Add(ctxBG, AddWaitlistInput{
		GuestName:   name,
		PhoneNumber: "+15551230000",
		PartySize:   party,
	}, "")
	require.NoError(t, err)
	return view
}

func (env *testEnv) loadTable(t *testing.T, id string) models.Table {
	t.Helper()
	var table models.Table
	require.NoError(t, env.db.First(&table, "id = ?", id).Error)
	return table
}

func (env *testEnv) loadEntry(t *testing.T, id string) models.WaitlistEntry {
	t.Helper()
	var entry models.WaitlistEntry
	require.NoError(t, env.db.First(&entry, "id = ?", id).Error)
	return entry
}
