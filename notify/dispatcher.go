package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Channels
const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
	ChannelBoth     = "both"
)

// Kinds
const (
	KindTableReady   = "table_ready"
	KindConfirmation = "waitlist_confirmation"
)

type Notification struct {
	Kind       string
	WaitlistID string
	GuestName  string
	To         string
	Body       string
	Preference string
	ActorID    string
}

type ChannelResult struct {
	Channel   string `json:"channel"`
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DeliveryReport is handed to the result hook once every channel was tried.
type DeliveryReport struct {
	Kind       string          `json:"kind"`
	WaitlistID string          `json:"waitlistId"`
	GuestName  string          `json:"guestName"`
	Results    []ChannelResult `json:"results"`
	ActorID    string          `json:"-"`
}

func (r DeliveryReport) Success() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if !res.Success {
			return false
		}
	}
	return true
}

type ResultHook func(DeliveryReport)

// Dispatcher delivers notifications off the request path.
type Dispatcher struct {
	sender Sender
	log    logrus.FieldLogger
	wg     sync.WaitGroup

	mu   sync.RWMutex
	hook ResultHook
}

func NewDispatcher(sender Sender, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{sender: sender, log: log}
}

// OnResult sets the hook that observes each finished delivery.
func (d *Dispatcher) OnResult(hook ResultHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hook = hook
}

// Dispatch returns immediately.
func (d *Dispatcher) Dispatch(n Notification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.WithField("panic", r).Error("Notification delivery panicked")
			}
		}()
		d.deliver(n)
	}()
}

// Wait blocks until every dispatched notification finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(n Notification) {
	report := DeliveryReport{
		Kind:       n.Kind,
		WaitlistID: n.WaitlistID,
		GuestName:  n.GuestName,
		ActorID:    n.ActorID,
	}

	pref := n.Preference
	if pref == "" {
		pref = ChannelSMS
	}
	if pref == ChannelSMS || pref == ChannelBoth {
		report.Results = append(report.Results, d.try(ChannelSMS, n, d.sender.SendSMS))
	}
	if pref == ChannelWhatsApp || pref == ChannelBoth {
		report.Results = append(report.Results, d.try(ChannelWhatsApp, n, d.sender.SendWhatsApp))
	}

	d.mu.RLock()
	hook := d.hook
	d.mu.RUnlock()
	if hook != nil {
		hook(report)
	}
}

func (d *Dispatcher) try(channel string, n Notification, send func(to, body string) (string, error)) ChannelResult {
	entry := d.log.WithFields(logrus.Fields{
		"channel":     channel,
		"kind":        n.Kind,
		"waitlist_id": n.WaitlistID,
	})

	id, err := send(n.To, n.Body)
	if err != nil {
		entry.WithError(err).Warn("Notification delivery failed")
		return ChannelResult{Channel: channel, Error: err.Error()}
	}
	entry.WithField("message_id", id).Info("Notification sent")
	return ChannelResult{Channel: channel, Success: true, MessageID: id}
}
