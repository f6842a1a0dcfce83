package service

import (
	"context"
	"errors"
	bookingserrors "rentio/internal/bookings/errors"
	bookingsrepo "rentio/internal/bookings/repository"
	conversations "rentio/internal/conversations/service"
	"rentio/internal/events"
	listingsrepo "rentio/internal/listings/repository"
	notifications "rentio/internal/notifications/service"
	paymentserrors "rentio/internal/payments/errors"
	"rentio/internal/payments/repository"
	"rentio/pkg/config"
	apperrors "rentio/pkg/errors"
	"rentio/pkg/model"
	"time"
)

const failedPaymentReason = "Payment failed"

type Outcome string

const (
	// OutcomeApplied means the booking transitioned and side effects ran.
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored means the payment status was recorded but the booking
	// was not in a state the event may move it from.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate means the event id was already processed.
	OutcomeDuplicate Outcome = "duplicate"
)

type Result struct {
	Outcome       Outcome
	PaymentID     string
	PaymentStatus model.PaymentStatus
	Booking       *model.Booking
	EventType     model.BookingEventType
}

type WebhookService interface {
	ProcessWebhook(ctx context.Context, provider string, event *model.WebhookEvent) (*Result, error)
}

type webhookService struct {
	payments      repository.PaymentRepository
	ledger        repository.LedgerRepository
	bookings      bookingsrepo.BookingRepository
	listings      listingsrepo.ListingRepository
	notifier      notifications.BookingNotifier
	conversations conversations.Bootstrapper
	publisher     events.Publisher
	cfg           *config.Config
	now           func() time.Time
}

func NewWebhookService(
	payments repository.PaymentRepository,
	ledger repository.LedgerRepository,
	bookings bookingsrepo.BookingRepository,
	listings listingsrepo.ListingRepository,
	notifier notifications.BookingNotifier,
	conversations conversations.Bootstrapper,
	publisher events.Publisher,
	cfg *config.Config,
) WebhookService {
	return &webhookService{
		payments:      payments,
		ledger:        ledger,
		bookings:      bookings,
		listings:      listings,
		notifier:      notifier,
		conversations: conversations,
		publisher:     publisher,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// decision is what a webhook does to a payment and its booking. A nil
// transition leaves the booking untouched.
type decision struct {
	paymentStatus model.PaymentStatus
	transition    *model.BookingTransition
	eventType     model.BookingEventType
}

// decide applies the booking state machine to a gateway payload. Only a
// PENDING booking that has not been paid may move; anything else is recorded
// against the payment and otherwise ignored. The listing's instant_book flag
// decides confirmation only when the checkout metadata is silent.
func decide(booking *model.Booking, listing *model.Listing, payload *model.WebhookPayload, now time.Time) decision {
	movable := booking.Status == model.BookingPending &&
		booking.PaymentStatus != model.PaymentCompleted &&
		booking.PaymentStatus != model.PaymentRefunded

	if payload.Succeeded() {
		d := decision{paymentStatus: model.PaymentCompleted}
		if !movable {
			return d
		}
		requiresConfirmation := payload.RequiresConfirmation() ||
			(!payload.HasConfirmationHint() && listing.RequiresConfirmation())
		if requiresConfirmation {
			d.transition = &model.BookingTransition{
				Status:        model.BookingPending,
				PaymentStatus: model.PaymentCompleted,
			}
			d.eventType = model.EventAwaitingConfirmation
			return d
		}
		d.transition = &model.BookingTransition{
			Status:        model.BookingConfirmed,
			PaymentStatus: model.PaymentCompleted,
			ConfirmedAt:   &now,
		}
		d.eventType = model.EventPaymentSucceeded
		return d
	}

	d := decision{paymentStatus: model.PaymentFailed}
	if !movable {
		return d
	}
	d.transition = &model.BookingTransition{
		Status:             model.BookingCancelled,
		PaymentStatus:      model.PaymentFailed,
		CancelledAt:        &now,
		CancellationReason: failedPaymentReason,
	}
	d.eventType = model.EventPaymentFailed
	return d
}

func (s *webhookService) ProcessWebhook(ctx context.Context, provider string, event *model.WebhookEvent) (*Result, error) {
	log := s.cfg.Log.With("provider", provider, "event_id", event.ID, "checkout_id", event.Payload.ID)

	payment, err := s.payments.FindByGatewayID(ctx, event.Payload.ID)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrPaymentNotFound) {
			log.Warn("Webhook references unknown payment")
			return nil, apperrors.NotFound("Payment")
		}
		return nil, apperrors.Internal("Failed to look up payment", err)
	}

	now := s.now().Truncate(time.Millisecond)
	entry := &model.ProcessedWebhook{
		EventID:    ledgerKey(provider, event.ID),
		Provider:   provider,
		Type:       event.Type,
		CheckoutID: event.Payload.ID,
		PaymentID:  payment.ID,
		Status:     event.Payload.Status,
		ReceivedAt: now,
	}

	var (
		from     model.BookingStatus
		d        decision
		outcome  Outcome
		snapshot *model.Booking
	)
	// The callback may be retried on transient transaction errors, so it
	// only assigns to the captured variables.
	err = s.bookings.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.ledger.Record(txCtx, entry); err != nil {
			if errors.Is(err, paymentserrors.ErrEventAlreadyProcessed) {
				return err
			}
			return apperrors.Internal("Failed to record webhook event", err)
		}

		booking, err := s.bookings.FindByID(txCtx, payment.BookingID)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", payment.BookingID)
			}
			return apperrors.Internal("Failed to load booking", err)
		}

		var listing *model.Listing
		if event.Payload.Succeeded() && !event.Payload.HasConfirmationHint() {
			if listing, err = s.listings.FindByID(txCtx, booking.ListingID); err != nil {
				log.Warn("Failed to load listing, treating booking as instant book",
					"listing_id", booking.ListingID,
					"error", err,
				)
			}
		}

		d = decide(booking, listing, event.Payload, now)
		from = booking.Status

		if err := s.payments.UpdateStatus(txCtx, payment.ID, d.paymentStatus); err != nil {
			return apperrors.Internal("Failed to update payment", err)
		}

		if d.transition == nil {
			outcome, snapshot = OutcomeIgnored, booking
			return nil
		}

		updated, err := s.bookings.ApplyTransition(txCtx, booking.ID, booking.Status, *d.transition)
		if err != nil {
			return apperrors.Internal("Failed to update booking", err)
		}
		outcome, snapshot = OutcomeApplied, updated
		return nil
	})
	if err != nil {
		if errors.Is(err, paymentserrors.ErrEventAlreadyProcessed) {
			log.Info("Duplicate webhook event ignored")
			return &Result{Outcome: OutcomeDuplicate, PaymentID: payment.ID}, nil
		}
		log.Error("Failed to apply webhook", "payment_id", payment.ID, "error", err)
		return nil, err
	}

	result := &Result{
		Outcome:       outcome,
		PaymentID:     payment.ID,
		PaymentStatus: d.paymentStatus,
		Booking:       snapshot,
		EventType:     d.eventType,
	}

	if outcome == OutcomeIgnored {
		log.Info("Webhook recorded without booking transition",
			"payment_id", payment.ID,
			"booking_id", snapshot.ID,
			"booking_status", snapshot.Status,
			"booking_payment_status", snapshot.PaymentStatus,
			"payment_status", d.paymentStatus,
		)
		return result, nil
	}

	log.Info("Webhook applied",
		"payment_id", payment.ID,
		"booking_id", snapshot.ID,
		"from_status", from,
		"to_status", snapshot.Status,
		"payment_status", snapshot.PaymentStatus,
	)

	s.runSideEffects(ctx, snapshot, from, d.eventType)
	return result, nil
}

// runSideEffects notifies parties, bootstraps the conversation and publishes
// the booking event. Every failure is logged and swallowed.
func (s *webhookService) runSideEffects(ctx context.Context, booking *model.Booking, from model.BookingStatus, eventType model.BookingEventType) {
	log := s.cfg.Log.With("booking_id", booking.ID)

	listing, err := s.listings.FindByID(ctx, booking.ListingID)
	if err != nil {
		log.Error("Failed to load listing for side effects", "listing_id", booking.ListingID, "error", err)
	}
	bc := notifications.BookingContext{Booking: booking, Listing: listing}

	switch eventType {
	case model.EventPaymentSucceeded:
		ownerID := booking.OwnerID
		if listing != nil && listing.OwnerID != "" {
			ownerID = listing.OwnerID
		}
		if _, err := s.conversations.Bootstrap(ctx, booking, ownerID); err != nil {
			log.Error("Failed to bootstrap conversation", "error", err)
		}
		s.notifier.InstantBookConfirmed(ctx, bc)
	case model.EventAwaitingConfirmation:
		s.notifier.PaymentAwaitingConfirmation(ctx, bc)
	case model.EventPaymentFailed:
		s.notifier.PaymentFailed(ctx, bc)
	}

	err = s.publisher.Publish(ctx, model.BookingEvent{
		Type:          eventType,
		BookingID:     booking.ID,
		BookingNumber: booking.BookingNumber,
		FromStatus:    from,
		ToStatus:      booking.Status,
		PaymentStatus: booking.PaymentStatus,
		Source:        s.cfg.ServiceName,
		OccurredAt:    s.now(),
	})
	if err != nil {
		log.Error("Failed to publish booking event", "type", eventType, "error", err)
	}
}

func ledgerKey(provider, eventID string) string {
	return provider + ":" + eventID
}
