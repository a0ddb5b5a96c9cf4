// Package email sends transactional mail for lead lifecycle moments.
package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/logger"
)

// Sender delivers transactional email. Implementations must be safe for
// concurrent use.
type Sender interface {
	SendLeadAssigned(ctx context.Context, to, brokerName, leadName string) error
	SendLeadWon(ctx context.Context, to, brokerName, leadName string) error
}

// SMTPSender sends through the configured SMTP relay using go-mail.
type SMTPSender struct {
	cfg config.EmailConfig
	log *logger.Logger
}

func NewSMTPSender(cfg config.EmailConfig, log *logger.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: log}
}

// Compile-time check that SMTPSender implements Sender.
var _ Sender = (*SMTPSender)(nil)

func (s *SMTPSender) SendLeadAssigned(ctx context.Context, to, brokerName, leadName string) error {
	subject := "Novo lead atribuído a você"
	body := fmt.Sprintf("Olá %s,\n\nO lead %s foi atribuído a você. Acesse o painel para fazer o primeiro contato.\n", brokerName, leadName)
	return s.send(ctx, to, subject, body)
}

func (s *SMTPSender) SendLeadWon(ctx context.Context, to, brokerName, leadName string) error {
	subject := "Negócio fechado"
	body := fmt.Sprintf("Parabéns %s!\n\nO lead %s foi marcado como ganho.\n", brokerName, leadName)
	return s.send(ctx, to, subject, body)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("email from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("email to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.cfg.GetSMTPHost(),
		mail.WithPort(s.cfg.GetSMTPPort()),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.GetSMTPUsername()),
		mail.WithPassword(s.cfg.GetSMTPPassword()),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	s.log.Info("email sent", "to", to, "subject", subject)
	return nil
}

// NoopSender drops mail; used when email is disabled by configuration.
type NoopSender struct{}

var _ Sender = NoopSender{}

func (NoopSender) SendLeadAssigned(context.Context, string, string, string) error { return nil }
func (NoopSender) SendLeadWon(context.Context, string, string, string) error      { return nil }

// FromConfig picks the SMTP sender or the noop depending on configuration.
func FromConfig(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg, log)
}
