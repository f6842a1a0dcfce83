package main

import (
	"rentio/internal/bookings/repository"
	conversationsrepo "rentio/internal/conversations/repository"
	conversations "rentio/internal/conversations/service"
	"rentio/internal/events"
	listingsrepo "rentio/internal/listings/repository"
	notifications "rentio/internal/notifications/service"
	"rentio/internal/payments/handler"
	"rentio/internal/payments/provider"
	paymentsrepo "rentio/internal/payments/repository"
	"rentio/internal/payments/service"
	"rentio/internal/payments/signature"
	"rentio/internal/payments/validator"
	"rentio/pkg/app"
	"rentio/pkg/config"
)

func main() {
	cfg := config.Load(config.ServicePayments)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Payments service")
	publisher := initPublisher(cfg)
	webhookHandler := initHandler(cfg, publisher)

	// Gateway retries reuse the delivery id, so replays are answered from cache
	// before reaching the ledger.
	serverApp := app.NewApplication(cfg,
		app.WithIdempotency(signature.HeaderID),
		app.WithCloser("booking events publisher", publisher.Close),
	)
	serverApp.SetApp(webhookHandler)
	serverApp.Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	publisher, _, err := events.NewPublisher(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize booking events publisher", "error", err)
	}
	return publisher
}

func initHandler(cfg *config.Config, publisher events.Publisher) *handler.WebhookHandler {
	verifier, err := signature.NewVerifier(cfg.YocoWebhookSecret, cfg.WebhookAllowUnsigned)
	if err != nil {
		cfg.Log.Fatal("Invalid webhook secret", "error", err)
	}
	registry := provider.NewRegistry(provider.NewYoco(verifier))

	notifier, err := notifications.NewBookingNotifierFromConfig(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize notifications", "error", err)
	}

	webhookService := service.NewWebhookService(
		paymentsrepo.NewMongoPaymentRepository(cfg),
		paymentsrepo.NewMongoLedgerRepository(cfg),
		repository.NewMongoBookingRepository(cfg),
		listingsrepo.NewMongoListingRepository(cfg),
		notifier,
		conversations.NewBootstrapper(conversationsrepo.NewMongoConversationRepository(cfg), cfg.Log),
		publisher,
		cfg,
	)

	cfg.Log.Info("Webhook service initialized", "database", cfg.MongoDatabaseName)
	return handler.NewWebhookHandler(registry, validator.NewWebhookValidator(cfg.Log), webhookService, cfg.Log)
}
