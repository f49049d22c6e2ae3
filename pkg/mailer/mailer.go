package mailer

import (
	"context"
	"fmt"

	gomail "github.com/go-mail/mail"

	"github.com/ventia-app/ventia-backend/pkg/config"
	"github.com/ventia-app/ventia-backend/pkg/logger"
)

// Sender delivers a single message. Email jobs depend on this surface so
// tests can capture deliveries.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers messages over SMTP using the configured account.
type Mailer struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
	logg   *logger.Logger
}

// New builds an SMTP mailer. When mail is not configured the mailer logs
// and drops messages instead of failing the calling job.
func New(cfg config.MailConfig, logg *logger.Logger) *Mailer {
	m := &Mailer{cfg: cfg, logg: logg}
	if cfg.Enabled() {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return m
}

// Send delivers one message, honoring context cancellation before dialing.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.dialer == nil {
		if m.logg != nil {
			ctx = m.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
			m.logg.Info(ctx, "mail disabled, dropping message")
		}
		return nil
	}

	email := gomail.NewMessage()
	email.SetHeader("From", m.cfg.From)
	email.SetHeader("To", msg.To)
	email.SetHeader("Subject", msg.Subject)
	email.SetBody("text/html", msg.HTML)

	if err := m.dialer.DialAndSend(email); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}
