package service

import (
	"fmt"
	listingsrepo "rentio/internal/listings/repository"
	"rentio/internal/notifications/mailer"
	"rentio/internal/notifications/repository"
	"rentio/pkg/config"
)

// NewMailer sends through Resend when RESEND_API_KEY is set and only logs
// otherwise.
func NewMailer(cfg *config.Config) mailer.Mailer {
	if cfg.ResendAPIKey == "" {
		cfg.Log.Warn("RESEND_API_KEY not set, emails will be logged instead of sent")
		return mailer.NewLogMailer(cfg.Log)
	}
	return mailer.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom, cfg.Log)
}

// NewBookingNotifierFromConfig wires the Mongo-backed notifier used by both
// HTTP services.
func NewBookingNotifierFromConfig(cfg *config.Config) (BookingNotifier, error) {
	renderer, err := mailer.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}

	dispatcher := NewDispatcher(
		repository.NewMongoNotificationRepository(cfg),
		NewMailer(cfg),
		cfg.Log,
	)
	return NewBookingNotifier(
		dispatcher,
		listingsrepo.NewMongoProfileRepository(cfg),
		renderer,
		cfg.AppBaseURL,
		cfg.Log,
	), nil
}
