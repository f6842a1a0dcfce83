package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"rentio/pkg/kafka"
	"rentio/pkg/logger"
)

// Counters accumulates publish and consume outcomes for one process.
type Counters struct {
	Published       atomic.Int64
	PublishFailed   atomic.Int64
	publishDuration atomic.Int64

	Consumed        atomic.Int64
	ConsumeFailed   atomic.Int64
	consumeDuration atomic.Int64
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) AvgPublishDuration() time.Duration {
	n := c.Published.Load() + c.PublishFailed.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(c.publishDuration.Load() / n)
}

func (c *Counters) AvgConsumeDuration() time.Duration {
	n := c.Consumed.Load() + c.ConsumeFailed.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(c.consumeDuration.Load() / n)
}

// LogSnapshot writes the current totals as one structured line.
func (c *Counters) LogSnapshot(log *logger.Logger) {
	log.Info("Kafka counters",
		"published", c.Published.Load(),
		"publish_failed", c.PublishFailed.Load(),
		"avg_publish_ms", c.AvgPublishDuration().Milliseconds(),
		"consumed", c.Consumed.Load(),
		"consume_failed", c.ConsumeFailed.Load(),
		"avg_consume_ms", c.AvgConsumeDuration().Milliseconds(),
	)
}

func MetricsProducerMiddleware(c *Counters) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		c.publishDuration.Add(int64(time.Since(start)))
		if err != nil {
			c.PublishFailed.Add(1)
		} else {
			c.Published.Add(1)
		}
		return err
	}
}

func MetricsConsumerMiddleware(c *Counters) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		c.consumeDuration.Add(int64(time.Since(start)))
		if err != nil {
			c.ConsumeFailed.Add(1)
		} else {
			c.Consumed.Add(1)
		}
		return err
	}
}
