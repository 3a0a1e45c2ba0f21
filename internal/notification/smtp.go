// Package notification sends batch summary emails. Delivery failures are
// logged and never affect batch processing.
package notification

import (
	"context"

	"github.com/wneessen/go-mail"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Sender delivers a notification message.
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPSender sends plain-text email over SMTP.
type SMTPSender struct {
	cfg config.EmailConfig
	log *logger.Logger
}

// NewSMTPSender creates an SMTP sender from configuration.
func NewSMTPSender(cfg config.EmailConfig, log *logger.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: log}
}

// Send delivers one message to the configured notification address.
func (s *SMTPSender) Send(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return err
	}
	if err := msg.To(s.cfg.GetNotifyEmailTo()); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.cfg.GetSMTPHost(),
		mail.WithPort(s.cfg.GetSMTPPort()),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.GetSMTPUsername()),
		mail.WithPassword(s.cfg.GetSMTPPassword()),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
