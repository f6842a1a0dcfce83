package service

import (
	"context"
	"errors"
	"fmt"
	"rentio/internal/audit/repository"
	"rentio/pkg/kafka"
	"rentio/pkg/logger"
	"rentio/pkg/model"
	"time"
)

// Recorder turns booking events from the bus into history entries.
type Recorder struct {
	repo repository.HistoryRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewRecorder(repo repository.HistoryRepository, log *logger.Logger) *Recorder {
	return &Recorder{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Handle is a kafka.MessageHandler. Undecodable events are permanent failures
// and go to the DLQ; storage failures are retried.
func (r *Recorder) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("invalid booking event payload", err)
	}
	if event.BookingID == "" || event.Type == "" {
		return kafka.NewPermanentError("booking event is missing booking_id or type", nil)
	}

	eventID := msg.GetEventID()
	if eventID == "" {
		eventID = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}

	entry := &model.BookingHistoryEntry{
		EventID:       eventID,
		BookingID:     event.BookingID,
		Type:          event.Type,
		FromStatus:    event.FromStatus,
		ToStatus:      event.ToStatus,
		PaymentStatus: event.PaymentStatus,
		ActorID:       event.ActorID,
		Source:        event.Source,
		OccurredAt:    event.OccurredAt,
		RecordedAt:    r.now().Truncate(time.Millisecond),
	}

	if err := r.repo.Insert(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			r.log.Debug("Booking event already recorded", "event_id", eventID)
			return nil
		}
		return kafka.NewTransientError("failed to record booking history", err)
	}

	r.log.Info("Booking history recorded",
		"event_id", eventID,
		"booking_id", event.BookingID,
		"type", event.Type,
		"from_status", event.FromStatus,
		"to_status", event.ToStatus,
	)
	return nil
}
