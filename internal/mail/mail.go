// Package mail delivers plain-text notification emails.
package mail

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/docdesk/internal/config"
)

// Message is a single plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Validate checks the fields every transport needs.
func (m Message) Validate() error {
	if m.From == "" {
		return errors.New("mail: empty sender")
	}
	if len(m.To) == 0 {
		return errors.New("mail: no recipients")
	}
	for _, to := range m.To {
		if to == "" {
			return errors.New("mail: empty recipient")
		}
	}
	return nil
}

// Mailer sends one message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the transport selected by cfg.Backend.
func New(cfg config.MailConfig, logger *zap.Logger) (Mailer, error) {
	switch cfg.Backend {
	case "smtp":
		return NewSMTPMailer(cfg)
	case "log":
		return NewLogMailer(logger), nil
	}
	return nil, fmt.Errorf("mail backend %q not supported", cfg.Backend)
}

// LogMailer writes messages to the logger instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.With(zap.String("component", "mail"))}
}

// Send logs the message.
func (l *LogMailer) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l.logger.Info("email",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
