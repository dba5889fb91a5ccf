// Package mail is the dispatch collaborator for account emails. Sending
// is fire-and-forget from the caller's point of view: the registration
// flow logs a send failure but never surfaces it as a registration
// failure.
package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"bookshop-service/internal/config"
)

// Mailer delivers a single plain-text message. No delivery receipt is
// awaited.
type Mailer interface {
	Send(subject, body, recipient string) error
}

// SMTPMailer sends through a configured relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr: cfg.Host + ":" + cfg.Port,
		auth: auth,
		from: cfg.From,
	}
}

func (m *SMTPMailer) Send(subject, body, recipient string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.from, recipient, subject, body)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("mail: send to %s failed: %w", recipient, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of delivering them.
// Used in development when no SMTP relay is configured.
type LogMailer struct{}

func (LogMailer) Send(subject, body, recipient string) error {
	log.Printf("INFO: [mail] to=%s subject=%q\n%s", recipient, subject, body)
	return nil
}

// FromConfig picks the SMTP mailer when a relay host is configured and
// the log mailer otherwise.
func FromConfig(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		log.Println("WARN: SMTP_HOST not set, falling back to log-only mailer")
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}
