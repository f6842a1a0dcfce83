package main

import (
	"rentio/internal/bookings/handler"
	"rentio/internal/bookings/repository"
	"rentio/internal/bookings/service"
	"rentio/internal/bookings/validator"
	conversationsrepo "rentio/internal/conversations/repository"
	conversations "rentio/internal/conversations/service"
	"rentio/internal/events"
	listingsrepo "rentio/internal/listings/repository"
	notifications "rentio/internal/notifications/service"
	"rentio/pkg/app"
	"rentio/pkg/auth"
	"rentio/pkg/config"
	"rentio/pkg/middleware"
)

func main() {
	cfg := config.Load(config.ServiceBookings)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")
	publisher, _, err := events.NewPublisher(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize booking events publisher", "error", err)
	}
	bookingService := initServices(cfg, publisher)

	serverApp := app.NewApplication(cfg,
		app.WithMiddleware(middleware.Authenticate(auth.NewVerifier(cfg.SupabaseJWTSecret), cfg.Log)),
		app.WithIdempotency("Idempotency-Key"),
		app.WithCloser("booking events publisher", publisher.Close),
	)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) service.BookingService {
	notifier, err := notifications.NewBookingNotifierFromConfig(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize notifications", "error", err)
	}

	bookingService := service.NewBookingService(
		repository.NewMongoBookingRepository(cfg),
		repository.NewMongoRefundRepository(cfg),
		listingsrepo.NewMongoListingRepository(cfg),
		validator.NewBookingValidator(cfg.Log),
		notifier,
		conversations.NewBootstrapper(conversationsrepo.NewMongoConversationRepository(cfg), cfg.Log),
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
