package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// ErrRejected marks a message the provider refused outright. Resending it will not help.
var ErrRejected = errors.New("message rejected")

// Message is a single transactional email.
type Message struct {
	ToEmail  string
	ToName   string
	Subject  string
	Text     string
	HTML     string
	Category string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
}

// NewSendGridMailer builds a SendGrid-backed mailer.
func NewSendGridMailer(apiKey, appName, fromEmail, fromName string) (*SendGridMailer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if strings.TrimSpace(fromEmail) == "" {
		return nil, fmt.Errorf("missing sender address")
	}
	if fromName == "" {
		fromName = appName
	}
	prefix := ""
	if appName != "" {
		prefix = "[" + appName + "] "
	}
	return &SendGridMailer{
		client:     sendgrid.NewSendClient(apiKey),
		from:       sgmail.NewEmail(fromName, fromEmail),
		subjPrefix: prefix,
	}, nil
}

// Send delivers msg and treats any non-2xx response as a failure.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return fmt.Errorf("recipient required: %w", ErrRejected)
	}
	resp, err := m.client.SendWithContext(ctx, m.build(msg))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	return classifyStatus(resp.StatusCode, resp.Body)
}

// classifyStatus maps a SendGrid response onto nil, a retryable error or ErrRejected.
func classifyStatus(status int, body string) error {
	switch {
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return nil
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError && status != http.StatusTooManyRequests:
		return fmt.Errorf("sendgrid send: status %d: %s: %w", status, body, ErrRejected)
	default:
		return fmt.Errorf("sendgrid send: status %d: %s", status, body)
	}
}

func (m *SendGridMailer) build(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	text := msg.Text
	if text == "" {
		text = msg.Subject
	}
	v3.AddContent(sgmail.NewContent("text/plain", text))
	if msg.HTML != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	if msg.Category != "" {
		v3.AddCategories(msg.Category)
	}
	return v3
}

// LogMailer writes messages to the logger instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a development mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email suppressed",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.String("category", msg.Category),
	)
	return nil
}
