package service

import (
	"context"
	"rentio/internal/notifications/mailer"
	"rentio/internal/notifications/repository"
	"rentio/pkg/logger"
	"rentio/pkg/model"
)

// Delivery is one notification row plus an optional email to send alongside it.
type Delivery struct {
	Notification *model.Notification
	Emails       []mailer.Email
}

// Dispatcher persists in-app notifications and sends their emails. Failures are
// logged and never returned.
type Dispatcher struct {
	repo   repository.NotificationRepository
	mailer mailer.Mailer
	log    *logger.Logger
}

func NewDispatcher(repo repository.NotificationRepository, m mailer.Mailer, log *logger.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, mailer: m, log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, delivery Delivery) {
	if n := delivery.Notification; n != nil {
		if err := d.repo.Create(ctx, n); err != nil {
			d.log.Error("Failed to create notification",
				"user_id", n.UserID,
				"type", n.Type,
				"error", err,
			)
		}
	}

	for _, email := range delivery.Emails {
		if email.To == "" {
			continue
		}
		if err := d.mailer.Send(ctx, email); err != nil {
			d.log.Error("Failed to send email",
				"template", email.Template,
				"error", err,
			)
		}
	}
}
