package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const defaultFromName = "OptimumSoft Website"

// ErrNoRecipient is returned by senders when a message has no To address.
var ErrNoRecipient = errors.New("notify: message has no recipient")

// EmailSender delivers one notification. SendGrid, SES and the stub are interchangeable.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one lead notification. ReplyTo is the visitor's address so the
// recipient can answer the lead directly. Tags are forwarded to the provider for
// filtering (SendGrid categories, SES message tags).
type EmailMessage struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	Body    string
	HTML    string
	Tags    map[string]string
}

// sortedTags returns the tags as key/value pairs in key order.
func (m EmailMessage) sortedTags() [][2]string {
	keys := make([]string, 0, len(m.Tags))
	for k := range m.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		if v := m.Tags[k]; v != "" {
			out = append(out, [2]string{k, v})
		}
	}
	return out
}

// sendgridClient is the slice of *sendgrid.Client the sender calls.
type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender relays lead notifications through the SendGrid v3 API.
type SendGridSender struct {
	client   sendgridClient
	from     *mail.Email
	category string
	logger   *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// Category is attached to every message; defaults to "lead".
	Category string
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	return newSendGridSender(sendgrid.NewSendClient(cfg.APIKey), cfg, logger)
}

func newSendGridSender(client sendgridClient, cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	if cfg.Category == "" {
		cfg.Category = "lead"
	}
	return &SendGridSender{
		client:   client,
		from:     mail.NewEmail(cfg.FromName, cfg.FromEmail),
		category: cfg.Category,
		logger:   logger,
	}
}

// BuildMessage renders msg as a SendGrid v3 payload.
func (s *SendGridSender) BuildMessage(msg EmailMessage) *mail.SGMailV3 {
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Body, html)
	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}
	categories := []string{s.category}
	for _, tag := range msg.sortedTags() {
		categories = append(categories, tag[0]+":"+tag[1])
		message.SetCustomArg(tag[0], tag[1])
	}
	message.AddCategories(categories...)
	return message
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	if msg.To == "" {
		return ErrNoRecipient
	}

	response, err := s.client.SendWithContext(ctx, s.BuildMessage(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("lead notification sent", "provider", "sendgrid", "to", msg.To, "status", response.StatusCode)
	return nil
}

// StubEmailSender logs notifications instead of sending them and keeps the most
// recent ones for local inspection.
type StubEmailSender struct {
	mu     sync.Mutex
	sent   []EmailMessage
	keep   int
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{keep: 50, logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	if len(s.sent) > s.keep {
		s.sent = s.sent[len(s.sent)-s.keep:]
	}
	s.mu.Unlock()
	s.logger.Info("stub email sender: would send lead notification", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Sent returns a copy of the retained messages, oldest first.
func (s *StubEmailSender) Sent() []EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EmailMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
