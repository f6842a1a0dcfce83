package mailer

import (
	"context"
	"fmt"
	"rentio/pkg/logger"
	"sort"

	"github.com/resend/resend-go/v2"
)

type ResendMailer struct {
	client *resend.Client
	from   string
	log    *logger.Logger
}

func NewResendMailer(apiKey, from string, log *logger.Logger) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
		log:    log,
	}
}

func (m *ResendMailer) Send(ctx context.Context, email Email) error {
	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		Tags:    toTags(email.Tags),
	}

	sent, err := m.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("resend: send %q: %w", email.Template, err)
	}

	m.log.Debug("Email sent", "template", email.Template, "message_id", sent.Id)
	return nil
}

func toTags(tags map[string]string) []resend.Tag {
	if len(tags) == 0 {
		return nil
	}
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]resend.Tag, 0, len(tags))
	for _, name := range names {
		out = append(out, resend.Tag{Name: name, Value: tags[name]})
	}
	return out
}
