// Package mail delivers notification messages over SMTP.
package mail

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"

	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
	"github.com/vukovicluka/sheepai/internal/platform/config"
)

// sender is the part of the go-mail client used for delivery.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPMailer sends multipart messages. The SMTP client is built on first use,
// exactly once; without host or credentials the mailer reports every message
// as not sent.
type SMTPMailer struct {
	cfg    config.MailConfig
	logger *zerolog.Logger

	once      sync.Once
	client    sender
	clientErr error

	warnOnce sync.Once
	newFn    func(cfg config.MailConfig) (sender, error)
}

// NewSMTPMailer creates a mailer for cfg.
func NewSMTPMailer(cfg config.MailConfig, logger *zerolog.Logger) *SMTPMailer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SMTPMailer{cfg: cfg, logger: logger, newFn: newClient}
}

// Configured reports whether host, credentials and sender are set.
func (m *SMTPMailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.Username != "" && m.cfg.Password != "" && m.cfg.From != ""
}

// Send delivers one message with an HTML body and a plain-text alternative.
// It returns false with a nil error when mail is not configured.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html, text string) (bool, error) {
	if !m.Configured() {
		m.warnOnce.Do(func() {
			m.logger.Warn().Msg("SMTP not configured, notifications will not be delivered")
		})

		return false, nil
	}

	client, err := m.transport()
	if err != nil {
		return false, err
	}

	msg := gomail.NewMsg()

	if err := msg.From(m.cfg.From); err != nil {
		return false, fmt.Errorf("set from: %w", err)
	}

	if err := msg.To(to); err != nil {
		return false, fmt.Errorf("set to %q: %w", to, err)
	}

	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, text)
	msg.AddAlternativeString(gomail.TypeTextHTML, html)

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return false, fmt.Errorf("send to %s: %w", to, err)
	}

	m.logger.Debug().Str("to", to).Str("subject", subject).Msg("notification sent")

	return true, nil
}

func (m *SMTPMailer) transport() (sender, error) {
	m.once.Do(func() {
		m.client, m.clientErr = m.newFn(m.cfg)
	})

	if m.clientErr != nil {
		return nil, fmt.Errorf("%w: smtp client: %w", apperrors.ErrNotConfigured, m.clientErr)
	}

	return m.client, nil
}

func newClient(cfg config.MailConfig) (sender, error) {
	tls := gomail.TLSMandatory
	if cfg.Port == gomail.DefaultPort {
		tls = gomail.TLSOpportunistic
	}

	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(tls),
	)
	if err != nil {
		return nil, err
	}

	return client, nil
}
