package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
)

// Topics
const (
	TopicTableCreated     = "table:created"
	TopicTableUpdated     = "table:updated"
	TopicTableDeleted     = "table:deleted"
	TopicWaitlistAdded    = "waitlist:added"
	TopicWaitlistUpdated  = "waitlist:updated"
	TopicWaitlistRemoved  = "waitlist:removed"
	TopicGuestSeated      = "guest:seated"
	TopicNotificationSent = "notification:sent"
	TopicActivityNew      = "activity:new"
)

var AllTopics = []string{
	TopicTableCreated, TopicTableUpdated, TopicTableDeleted,
	TopicWaitlistAdded, TopicWaitlistUpdated, TopicWaitlistRemoved,
	TopicGuestSeated, TopicNotificationSent, TopicActivityNew,
}

func ValidTopic(topic string) bool {
	for _, t := range AllTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// Event is what observers receive. Seq increases by one per published event,
// so a gap tells an observer it missed something and should refetch.
type Event struct {
	Topic     string      `json:"event"`
	Seq       uint64      `json:"seq"`
	Entity    interface{} `json:"entity"`
	Timestamp time.Time   `json:"timestamp"`
}

// Forwarder relays events outside the process.
type Forwarder interface {
	Forward(ev Event, payload []byte) error
}

const DefaultBufferSize = 64

// Subscription is a registered observer. Events arrive on C until the
// subscription is removed or the hub is closed.
type Subscription struct {
	C <-chan Event

	ch      chan Event
	topics  map[string]bool
	dropped atomic.Uint64
}

func (s *Subscription) wants(topic string) bool {
	return len(s.topics) == 0 || s.topics[topic]
}

// Dropped counts events skipped because the observer was too slow.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Hub fans events out to observers. Publish never blocks on a slow observer.
type Hub struct {
	mu        sync.RWMutex
	observers map[*Subscription]struct{}
	closed    bool

	seq        atomic.Uint64
	bufferSize int
	forwarder  Forwarder
	log        logrus.FieldLogger
	now        func() time.Time
}

type Option func(*Hub)

func WithForwarder(f Forwarder) Option {
	return func(h *Hub) { h.forwarder = f }
}

func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

func NewHub(log logrus.FieldLogger, opts ...Option) *Hub {
	if log == nil {
		log = utils.DiscardLogger()
	}
	h := &Hub{
		observers:  make(map[*Subscription]struct{}),
		bufferSize: DefaultBufferSize,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers an observer. No topics means every topic.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	ch := make(chan Event, h.bufferSize)
	sub := &Subscription{C: ch, ch: ch, topics: make(map[string]bool, len(topics))}
	for _, t := range topics {
		sub.topics[t] = true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.observers[sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.observers[sub]; !ok {
		return
	}
	delete(h.observers, sub)
	close(sub.ch)
}

// Publish stamps entity with the next sequence number and delivers it to
// every interested observer. Delivery happens under the write lock so each
// observer sees sequence numbers in increasing order.
func (h *Hub) Publish(topic string, entity interface{}) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}

	ev := Event{
		Topic:     topic,
		Seq:       h.seq.Add(1),
		Entity:    entity,
		Timestamp: h.now(),
	}

	for sub := range h.observers {
		if !sub.wants(topic) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
			h.log.WithFields(logrus.Fields{"event": topic, "seq": ev.Seq}).Warn("Observer buffer full, dropping event")
		}
	}
	h.mu.Unlock()

	if h.forwarder != nil {
		payload, err := json.Marshal(ev)
		if err != nil {
			h.log.WithError(err).WithField("event", topic).Error("Failed to encode event")
			return
		}
		if err := h.forwarder.Forward(ev, payload); err != nil {
			h.log.WithError(err).WithField("event", topic).Warn("Failed to forward event")
		}
	}
}

func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Close disconnects every observer. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.observers {
		close(sub.ch)
		delete(h.observers, sub)
	}
}
