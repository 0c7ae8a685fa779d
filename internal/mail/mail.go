// Package mail sends transactional email. The SMTP implementation is used in
// production; Noop keeps development and tests quiet without an SMTP server.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "gopkg.in/gomail.v2"

	"github.com/FACorreiaa/go-tour-bookings/config"
)

type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*Noop)(nil)
)

type SMTPMailer struct {
	logger *slog.Logger
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.EmailConfig, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		logger: logger,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	m.logger.InfoContext(ctx, "email sent",
		slog.String("to", to),
		slog.String("subject", subject))
	return nil
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf("Hi %s,\n\nWelcome to the tours family! We are glad to have you.\n", name)
	return m.send(ctx, to, "Welcome to the tours family!", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Submit a PATCH request with your new password to:\n\n%s\n\nIf you didn't forget your password, please ignore this email. The link is valid for 10 minutes.\n",
		name, resetURL)
	return m.send(ctx, to, "Your password reset token (valid for 10 minutes)", body)
}

// Noop logs instead of sending. The reset URL lands in the log so local
// password-reset flows stay testable end to end.
type Noop struct {
	logger *slog.Logger
}

func NewNoop(logger *slog.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SendWelcome(ctx context.Context, to, name string) error {
	n.logger.InfoContext(ctx, "skipping welcome email", slog.String("to", to))
	return nil
}

func (n *Noop) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	n.logger.InfoContext(ctx, "skipping password reset email",
		slog.String("to", to),
		slog.String("reset_url", resetURL))
	return nil
}
