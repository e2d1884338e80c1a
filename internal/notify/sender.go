// Package notify delivers transactional email. Delivery is best-effort: the
// Queue logs send failures instead of returning them to callers.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendSender posts messages to the Resend HTTP API.
type ResendSender struct {
	http *resty.Client
	from string
}

const resendEndpoint = "https://api.resend.com"

func NewResendSender(apiKey, from string, timeout time.Duration) *ResendSender {
	return newResendSender(resendEndpoint, apiKey, from, timeout)
}

func newResendSender(endpoint, apiKey, from string, timeout time.Duration) *ResendSender {
	client := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &ResendSender{http: client, from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	res, err := s.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"from":    s.from,
			"to":      []string{msg.To},
			"subject": msg.Subject,
			"html":    msg.HTML,
		}).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("resend /emails: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("resend /emails returned %d: %s", res.StatusCode(), res.String())
	}
	return nil
}

// SMTPSender sends through a plain SMTP relay.
type SMTPSender struct {
	addr     string
	host     string
	user     string
	password string
	from     string
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		addr:     fmt.Sprintf("%s:%d", host, port),
		host:     host,
		user:     user,
		password: password,
		from:     from,
	}
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	mail := email.NewEmail()
	mail.From = s.from
	mail.To = []string{msg.To}
	mail.Subject = msg.Subject
	mail.HTML = []byte(msg.HTML)

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	err := mail.Send(s.addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(s.addr, nil)
	}
	if err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender only logs messages. It is used when no mail credential is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Warn().Str("to", msg.To).Str("subject", msg.Subject).Msg("no mail transport configured, email skipped")
	return nil
}

// Transport describes the configured mail credentials.
type Transport struct {
	ResendAPIKey string
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	From         string
	Timeout      time.Duration
}

// NewSender prefers Resend, then SMTP, and falls back to logging.
func NewSender(t Transport, log zerolog.Logger) Sender {
	switch {
	case t.ResendAPIKey != "":
		return NewResendSender(t.ResendAPIKey, t.From, t.Timeout)
	case t.SMTPServer != "":
		return NewSMTPSender(t.SMTPServer, t.SMTPPort, t.SMTPUser, t.SMTPPassword, t.From)
	default:
		return NewLogSender(log)
	}
}
