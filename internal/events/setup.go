package events

import (
	"fmt"
	"rentio/pkg/config"
	"rentio/pkg/kafka"
	kafka_config "rentio/pkg/kafka/config"
	kafka_middleware "rentio/pkg/kafka/middleware"
)

// NewPublisher returns a Kafka-backed publisher when KAFKA_ENABLED is set and a
// no-op publisher otherwise. The counters are nil for the no-op publisher.
func NewPublisher(cfg *config.Config) (Publisher, *kafka_middleware.Counters, error) {
	if !cfg.KafkaEnabled {
		return NewNopPublisher(cfg.Log), nil, nil
	}

	kcfg, err := kafka_config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid kafka configuration: %w", err)
	}
	kcfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kcfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic, cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	counters := kafka_middleware.NewCounters()
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware(counters))

	return NewKafkaPublisher(producer, cfg.ServiceName, cfg.Log), counters, nil
}
