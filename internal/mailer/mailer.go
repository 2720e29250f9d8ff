package mailer

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/medichain/medichain/internal/config"
)

// Mailer delivers short notification messages. Delivery is best-effort:
// callers treat failures as non-fatal.
type Mailer interface {
	Send(to, body string) error
}

// SMTPMailer sends through a configured relay using PLAIN auth.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: MediChain password reset\r\n\r\n%s\r\n",
		m.cfg.From, to, body)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer is the development fallback: it logs instead of sending so the
// reset flow stays exercisable without an SMTP relay.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(to, body string) error {
	m.log.Info("mail delivery skipped (no SMTP relay configured)",
		zap.String("to", to),
		zap.String("body", body),
	)
	return nil
}

// New picks the SMTP implementation when a relay is configured and the
// logging fallback otherwise.
func New(cfg config.SMTPConfig, log *zap.Logger) Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg)
	}
	return NewLogMailer(log)
}
