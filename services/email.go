package services

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/manga-store/manga-store-api/config"
)

// EmailSender delivers notification emails. Sending is always best-effort:
// callers log failures and carry on.
type EmailSender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail through the configured SMTP relay
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	host   string
}

var emailSenderInstance EmailSender

// InitEmailSender initializes the SMTP sender from configuration
func InitEmailSender(cfg *config.Config) EmailSender {
	emailSenderInstance = &SMTPSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.MailFrom,
		host:   cfg.SMTPHost,
	}
	return emailSenderInstance
}

// GetEmailSender returns the initialized email sender
func GetEmailSender() EmailSender {
	return emailSenderInstance
}

// SetEmailSender sets the email sender instance (primarily for testing)
func SetEmailSender(sender EmailSender) {
	emailSenderInstance = sender
}

// Send delivers a plain-text email through SMTP
func (s *SMTPSender) Send(to, subject, body string) error {
	if s.host == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
