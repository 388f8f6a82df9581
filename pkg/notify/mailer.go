// Package notify sends email reminders and builds the daily digest of
// expiring documents, ending trials, and active life events.
package notify

import (
	"errors"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"

	"lifeadmin/internal/config"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("email not configured, set SENDER_EMAIL and SENDER_PASSWORD")

// Sender delivers email. Satisfied by Mailer and by test fakes.
type Sender interface {
	Send(to, subject, htmlBody string) error
	Configured() bool
}

// Mailer sends HTML email over SMTP with STARTTLS.
type Mailer struct {
	cfg    config.SMTPConfig
	logger zerolog.Logger
}

// NewMailer creates a mailer from SMTP settings.
func NewMailer(cfg config.SMTPConfig, logger zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

// Configured reports whether sending is possible.
func (m *Mailer) Configured() bool {
	return m.cfg.Configured()
}

// Send delivers an HTML email. An empty recipient falls back to the
// configured notification address.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if !m.cfg.Configured() {
		return ErrNotConfigured
	}
	if to == "" {
		to = m.cfg.Recipient
	}
	if to == "" {
		return errors.New("no recipient email configured")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Sender, m.cfg.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		m.logger.Error().Err(err).Str("to", to).Msg("Failed to send email")
		return err
	}

	m.logger.Info().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}
