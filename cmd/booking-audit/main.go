package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"rentio/internal/audit/repository"
	"rentio/internal/audit/service"
	"rentio/internal/health"
	"rentio/pkg/config"
	"rentio/pkg/kafka"
	kafka_config "rentio/pkg/kafka/config"
	kafka_middleware "rentio/pkg/kafka/middleware"
	"rentio/pkg/middleware"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
)

const snapshotInterval = time.Minute

func main() {
	cfg := config.Load(config.ServiceBookingAudit)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log)

	recorder := service.NewRecorder(repository.NewMongoHistoryRepository(cfg), cfg.Log)
	consumer, err := kafka.NewConsumer(
		kcfg,
		cfg.BookingEventsTopic,
		cfg.BookingAuditGroupID,
		cfg.BookingEventsDLQTopic,
		recorder.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create booking events consumer", "error", err)
	}

	counters := kafka_middleware.NewCounters()
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware(counters))

	server := startHealthServer(cfg)
	go logSnapshots(ctx, cfg, counters, consumer)

	cfg.Log.Info("Booking audit consumer started",
		"topic", cfg.BookingEventsTopic,
		"group_id", cfg.BookingAuditGroupID,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Booking events consumer stopped", "error", err)
	}

	cfg.Log.Info("Shutting down booking audit consumer")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		cfg.Log.Error("Health server shutdown failed", "error", err)
	}
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	counters.LogSnapshot(cfg.Log)
}

func startHealthServer(cfg *config.Config) *http.Server {
	router := httprouter.New()
	health.NewHandler(cfg.Log, map[string]health.Pinger{
		"mongo": health.PingerFunc(func(ctx context.Context) error {
			return cfg.Client.Mongo.Ping(ctx, nil)
		}),
	}).RegisterRoutes(router)

	var handler http.Handler = router
	handler = middleware.RequestLogging(cfg.Log)(handler)
	handler = middleware.Recovery(cfg.Log)(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Error("Health server failed", "error", err)
		}
	}()
	return server
}

func logSnapshots(ctx context.Context, cfg *config.Config, counters *kafka_middleware.Counters, consumer *kafka.Consumer) {
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counters.LogSnapshot(cfg.Log)
			cfg.Log.Info("Booking events consumer lag", "lag", consumer.Lag())
		}
	}
}
