package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"rentio/internal/health"
	"rentio/pkg/config"
	"rentio/pkg/contracts"
	"rentio/pkg/middleware"
	"syscall"

	"github.com/julienschmidt/httprouter"
)

type Middleware func(http.Handler) http.Handler

type closer struct {
	name string
	fn   func() error
}

type Application struct {
	cfg               *config.Config
	server            *http.Server
	idempotencyStore  middleware.IdempotencyStore
	idempotencyHeader string
	rateLimiter       *middleware.RateLimiter
	middleware        []Middleware
	closers           []closer
	healthHandler     http.Handler
	appHttpHandler    http.Handler
}

type Option func(*Application)

// WithIdempotency caches successful mutating responses keyed by the given header.
func WithIdempotency(headerName string) Option {
	return func(a *Application) {
		a.idempotencyHeader = headerName
	}
}

// WithMiddleware wraps the application routes, inside rate limiting and
// outside idempotency. Health routes are never wrapped.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *Application) {
		a.middleware = append(a.middleware, mw...)
	}
}

// WithCloser registers a resource to release after the server stops.
func WithCloser(name string, fn func() error) Option {
	return func(a *Application) {
		a.closers = append(a.closers, closer{name: name, fn: fn})
	}
}

func NewApplication(cfg *config.Config, opts ...Option) *Application {
	a := &Application{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Application) SetApp(appHandler contracts.Handler) {
	a.setHealthHandler()
	a.setAppHandler(appHandler)
	a.setAppServer()
}

func (a *Application) setHealthHandler() {
	checks := map[string]health.Pinger{}
	if mongoClient := a.cfg.Client.Mongo; mongoClient != nil {
		checks["mongo"] = health.PingerFunc(func(ctx context.Context) error {
			return mongoClient.Ping(ctx, nil)
		})
	}
	if redisClient := a.cfg.Client.Redis; redisClient != nil {
		checks["redis"] = health.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	healthRouter := httprouter.New()
	health.NewHandler(a.cfg.Log, checks).RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(appHandler contracts.Handler) {
	appRouter := httprouter.New()
	appHandler.RegisterRoutes(appRouter)

	var appHttpHandler http.Handler = appRouter
	if a.idempotencyHeader != "" {
		if a.cfg.Client.Redis != nil {
			a.idempotencyStore = middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL)
			a.cfg.Log.Info("Idempotency keys stored in Redis", "header", a.idempotencyHeader)
		} else {
			a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
			a.cfg.Log.Info("Idempotency keys stored in memory", "header", a.idempotencyHeader)
		}
		appHttpHandler = middleware.Idempotency(a.idempotencyStore, a.idempotencyHeader, a.cfg.Log)(appHttpHandler)
	}

	a.rateLimiter = middleware.NewRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.ClientIPExtractor,
		a.cfg.Log,
	)

	appHttpHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHttpHandler)
	for i := len(a.middleware) - 1; i >= 0; i-- {
		appHttpHandler = a.middleware[i](appHttpHandler)
	}
	appHttpHandler = middleware.RateLimit(a.rateLimiter)(appHttpHandler)
	appHttpHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHttpHandler)
	appHttpHandler = middleware.RequestLogging(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.Recovery(a.cfg.Log)(appHttpHandler)
	a.appHttpHandler = appHttpHandler
	a.cfg.Log.Info("Application endpoints configured with full security middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHttpHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler exposes the composed mux, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.Stop()
	a.cfg.Log.Info("Server stopped gracefully")
}

// Stop releases background workers, registered closers and shared clients.
func (a *Application) Stop() {
	a.cfg.Log.Info("Stopping background workers...")
	if a.idempotencyStore != nil {
		a.idempotencyStore.Stop()
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	for _, c := range a.closers {
		if err := c.fn(); err != nil {
			a.cfg.Log.Error("Failed to close resource", "resource", c.name, "error", err)
		}
	}
	a.cfg.GracefulShutdown()
	a.cfg.Log.Info("Background workers stopped")
}
