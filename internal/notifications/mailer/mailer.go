package mailer

import (
	"context"
	"rentio/pkg/logger"
)

type Email struct {
	To       string
	Subject  string
	HTML     string
	Text     string
	Template string
	// Tags are attached to the provider message for delivery analytics.
	Tags map[string]string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// LogMailer records emails instead of sending them. Used when no provider
// API key is configured.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.log.Info("Email not sent, no provider configured",
		"to", email.To,
		"subject", email.Subject,
		"template", email.Template,
	)
	return nil
}
