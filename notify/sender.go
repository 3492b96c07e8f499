package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/sarthaktajane07/DineFlow/utils"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender delivers a single message on one channel and returns the provider id.
type Sender interface {
	SendSMS(to, body string) (string, error)
	SendWhatsApp(to, body string) (string, error)
}

type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	PhoneNumber    string
	WhatsAppNumber string
}

func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

type TwilioSender struct {
	client *twilio.RestClient
	cfg    TwilioConfig
}

func NewTwilioSender(cfg TwilioConfig) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		cfg: cfg,
	}
}

func (s *TwilioSender) SendSMS(to, body string) (string, error) {
	return s.send(utils.NormalizePhone(to), s.cfg.PhoneNumber, body)
}

// SendWhatsApp addresses both ends as whatsapp:<E.164>.
func (s *TwilioSender) SendWhatsApp(to, body string) (string, error) {
	return s.send(WhatsAppAddress(to), WhatsAppAddress(s.cfg.WhatsAppNumber), body)
}

func WhatsAppAddress(number string) string {
	return "whatsapp:" + utils.NormalizePhone(strings.TrimPrefix(number, "whatsapp:"))
}

func (s *TwilioSender) send(to, from, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

// LogSender stands in for Twilio when no credentials are configured.
type LogSender struct {
	log logrus.FieldLogger
	now func() time.Time
}

func NewLogSender(log logrus.FieldLogger) *LogSender {
	return &LogSender{log: log, now: time.Now}
}

func (s *LogSender) SendSMS(to, body string) (string, error) {
	s.log.WithFields(logrus.Fields{"to": to, "channel": ChannelSMS}).Info(body)
	return s.mockID(), nil
}

func (s *LogSender) SendWhatsApp(to, body string) (string, error) {
	s.log.WithFields(logrus.Fields{"to": to, "channel": ChannelWhatsApp}).Info(body)
	return s.mockID(), nil
}

func (s *LogSender) mockID() string {
	return fmt.Sprintf("mock_%d", s.now().UnixMilli())
}

// NewSender picks Twilio when credentials exist and the log sender otherwise.
func NewSender(cfg TwilioConfig, log logrus.FieldLogger) Sender {
	if cfg.Configured() {
		return NewTwilioSender(cfg)
	}
	log.Warn("Twilio credentials not configured, notifications are logged only")
	return NewLogSender(log)
}
