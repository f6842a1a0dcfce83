package config

import "time"

const (
	ServicePayments     = "payments"
	ServiceBookings     = "bookings"
	ServiceBookingAudit = "booking-audit"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "rentio"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultEmailFrom  = "Rentio <bookings@rentio.co.za>"
	DefaultAppBaseURL = "https://rentio.co.za"

	DefaultBookingEventsTopic    = "rentio.booking-events"
	DefaultBookingEventsDLQTopic = "rentio.booking-events.dlq"
	DefaultBookingAuditGroupID   = "rentio-booking-audit"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
