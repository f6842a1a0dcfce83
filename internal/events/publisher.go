package events

import (
	"context"
	"fmt"
	"rentio/pkg/kafka"
	"rentio/pkg/logger"
	"rentio/pkg/middleware"
	"rentio/pkg/model"
	"time"
)

const SchemaVersion = "1"

// Publisher emits booking state changes after they commit.
type Publisher interface {
	Publish(ctx context.Context, event model.BookingEvent) error
	Close() error
}

type producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	producer producer
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(p producer, source string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: p, source: source, log: log}
}

// Publish keys the message by booking id so one booking's events stay ordered
// within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event model.BookingEvent) error {
	if event.Source == "" {
		event.Source = p.source
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	msg, err := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventID("").
		WithEventType(string(event.Type)).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(event.Source).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build booking event: %w", err)
	}

	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct {
	log *logger.Logger
}

func NewNopPublisher(log *logger.Logger) *NopPublisher {
	return &NopPublisher{log: log}
}

func (p *NopPublisher) Publish(_ context.Context, event model.BookingEvent) error {
	p.log.Debug("Booking event not published, Kafka disabled",
		"type", event.Type,
		"booking_id", event.BookingID,
	)
	return nil
}

func (p *NopPublisher) Close() error { return nil }
