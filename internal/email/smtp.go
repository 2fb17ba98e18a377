// Package email provides outbound email delivery over SMTP.
package email

import (
	"context"
	"fmt"

	"estate_crm_backend/platform/config"

	"github.com/wneessen/go-mail"
)

// Sender delivers a plain-text email. Implementations are fire-and-forget
// from the caller's perspective; the notification module logs failures.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends email through a configured SMTP relay using go-mail.
type SMTPSender struct {
	client      *mail.Client
	fromName    string
	fromAddress string
}

// NewSender builds a Sender from config. When email is disabled a NoopSender
// is returned so callers never need to nil-check.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.GetSMTPPort()),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.GetSMTPUsername() != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.GetSMTPUsername()),
			mail.WithPassword(cfg.GetSMTPPassword()),
		)
	}

	client, err := mail.NewClient(cfg.GetSMTPHost(), opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTPSender{
		client:      client,
		fromName:    cfg.GetEmailFromName(),
		fromAddress: cfg.GetEmailFromAddress(),
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromAddress); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	return s.client.DialAndSendWithContext(ctx, msg)
}

// NoopSender drops all mail. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) Send(context.Context, string, string, string) error { return nil }
