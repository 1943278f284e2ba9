// Package notify delivers outbound email and Slack messages for the worker.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/helicone-dashboard/backend/config"
)

// ErrNotConfigured is returned when a sender has no credentials.
var ErrNotConfigured = errors.New("notify: sender not configured")

// Message is one outbound HTML email.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer sends HTML mail through an SMTP relay.
type SMTPMailer struct {
	client   mailSender
	fromName string
	fromAddr string
	now      func() time.Time
}

// NewSMTPMailer builds a mailer from cfg. An empty host yields a mailer that
// rejects every send with ErrNotConfigured.
func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	m := &SMTPMailer{fromName: cfg.FromName, fromAddr: cfg.FromAddress, now: time.Now}
	if cfg.SMTPHost == "" {
		return m, nil
	}
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPass),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	m.client = client
	return m, nil
}

// Send delivers msg. ctx bounds the dial and the SMTP conversation.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.client == nil {
		return ErrNotConfigured
	}
	out, err := m.build(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg(mail.WithEncoding(mail.EncodingQP), mail.WithCharset(mail.CharsetUTF8))
	if err := out.FromFormat(m.fromName, m.fromAddr); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.fromAddr, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetDateWithValue(m.now())
	out.SetBodyString(mail.TypeTextHTML, msg.BodyHTML)
	return out, nil
}
