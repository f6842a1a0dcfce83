package service

import (
	"context"
	"errors"
	"fmt"
	"rentio/internal/authz"
	bookingserrors "rentio/internal/bookings/errors"
	"rentio/internal/bookings/repository"
	"rentio/internal/bookings/validator"
	conversations "rentio/internal/conversations/service"
	"rentio/internal/events"
	listingsrepo "rentio/internal/listings/repository"
	notifications "rentio/internal/notifications/service"
	"rentio/pkg/auth"
	"rentio/pkg/config"
	apperrors "rentio/pkg/errors"
	"rentio/pkg/model"
	"rentio/pkg/sanitizer"
	"time"
)

type BookingService interface {
	GetByID(ctx context.Context, user *auth.User, id string) (*model.Booking, error)
	Confirm(ctx context.Context, user *auth.User, id string) (*model.Booking, error)
	Reject(ctx context.Context, user *auth.User, id string, req *validator.ReasonRequest) (*model.Booking, error)
	Cancel(ctx context.Context, user *auth.User, id string, req *validator.ReasonRequest) (*model.Booking, error)
	Start(ctx context.Context, user *auth.User, id string) (*model.Booking, error)
	Complete(ctx context.Context, user *auth.User, id string) (*model.Booking, error)
	RequestRefund(ctx context.Context, user *auth.User, id string, req *validator.RefundRequestBody) (*model.RefundRequest, error)
	ApproveRefund(ctx context.Context, user *auth.User, refundID string) (*model.RefundRequest, error)
}

type bookingService struct {
	repo          repository.BookingRepository
	refunds       repository.RefundRepository
	listings      listingsrepo.ListingRepository
	validator     *validator.BookingValidator
	notifier      notifications.BookingNotifier
	conversations conversations.Bootstrapper
	publisher     events.Publisher
	cfg           *config.Config
	now           func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	refunds repository.RefundRepository,
	listings listingsrepo.ListingRepository,
	validator *validator.BookingValidator,
	notifier notifications.BookingNotifier,
	conversations conversations.Bootstrapper,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:          repo,
		refunds:       refunds,
		listings:      listings,
		validator:     validator,
		notifier:      notifier,
		conversations: conversations,
		publisher:     publisher,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// lifecycleAction describes one user-driven status change.
type lifecycleAction struct {
	name   authz.Action
	verb   string
	target model.BookingStatus
	// only restricts the source status further than the lifecycle does.
	only        model.BookingStatus
	requirePaid bool
	event       model.BookingEventType
}

var (
	confirmAction = lifecycleAction{
		name:        authz.ActionConfirm,
		verb:        "confirmed",
		target:      model.BookingConfirmed,
		only:        model.BookingPending,
		requirePaid: true,
		event:       model.EventConfirmed,
	}
	rejectAction = lifecycleAction{
		name:   authz.ActionReject,
		verb:   "rejected",
		target: model.BookingCancelled,
		only:   model.BookingPending,
		event:  model.EventRejected,
	}
	cancelAction = lifecycleAction{
		name:   authz.ActionCancel,
		verb:   "cancelled",
		target: model.BookingCancelled,
		event:  model.EventCancelled,
	}
	startAction = lifecycleAction{
		name:   authz.ActionStart,
		verb:   "started",
		target: model.BookingInProgress,
		event:  model.EventStarted,
	}
	completeAction = lifecycleAction{
		name:   authz.ActionComplete,
		verb:   "completed",
		target: model.BookingCompleted,
		event:  model.EventCompleted,
	}
)

func (a lifecycleAction) allows(from model.BookingStatus) bool {
	if a.only != "" && from != a.only {
		return false
	}
	return from.CanTransitionTo(a.target)
}

func (s *bookingService) GetByID(ctx context.Context, user *auth.User, id string) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(user, authz.ActionView, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) Confirm(ctx context.Context, user *auth.User, id string) (*model.Booking, error) {
	updated, from, err := s.transition(ctx, user, id, confirmAction, "")
	if err != nil {
		return nil, err
	}

	bc := s.bookingContext(ctx, updated, user.ID, "")
	if _, err := s.conversations.Bootstrap(ctx, updated, ownerOf(bc)); err != nil {
		s.cfg.Log.Error("Failed to bootstrap conversation", "booking_id", id, "error", err)
	}
	s.notifier.OwnerConfirmed(ctx, bc)
	s.publish(ctx, confirmAction.event, updated, from, user.ID)
	return updated, nil
}

func (s *bookingService) Reject(ctx context.Context, user *auth.User, id string, req *validator.ReasonRequest) (*model.Booking, error) {
	reason, err := s.reason(req)
	if err != nil {
		return nil, err
	}
	updated, from, err := s.transition(ctx, user, id, rejectAction, reason)
	if err != nil {
		return nil, err
	}

	s.notifier.Rejected(ctx, s.bookingContext(ctx, updated, user.ID, reason))
	s.publish(ctx, rejectAction.event, updated, from, user.ID)
	return updated, nil
}

func (s *bookingService) Cancel(ctx context.Context, user *auth.User, id string, req *validator.ReasonRequest) (*model.Booking, error) {
	reason, err := s.reason(req)
	if err != nil {
		return nil, err
	}
	updated, from, err := s.transition(ctx, user, id, cancelAction, reason)
	if err != nil {
		return nil, err
	}

	s.notifier.Cancelled(ctx, s.bookingContext(ctx, updated, user.ID, reason))
	s.publish(ctx, cancelAction.event, updated, from, user.ID)
	return updated, nil
}

func (s *bookingService) Start(ctx context.Context, user *auth.User, id string) (*model.Booking, error) {
	updated, from, err := s.transition(ctx, user, id, startAction, "")
	if err != nil {
		return nil, err
	}

	s.notifier.Started(ctx, s.bookingContext(ctx, updated, user.ID, ""))
	s.publish(ctx, startAction.event, updated, from, user.ID)
	return updated, nil
}

func (s *bookingService) Complete(ctx context.Context, user *auth.User, id string) (*model.Booking, error) {
	updated, from, err := s.transition(ctx, user, id, completeAction, "")
	if err != nil {
		return nil, err
	}

	s.notifier.Completed(ctx, s.bookingContext(ctx, updated, user.ID, ""))
	s.publish(ctx, completeAction.event, updated, from, user.ID)
	return updated, nil
}

func (s *bookingService) RequestRefund(ctx context.Context, user *auth.User, id string, req *validator.RefundRequestBody) (*model.RefundRequest, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Request body is required")
	}
	req.Reason = sanitizer.SanitizeReason(req.Reason)
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(user, authz.ActionRequestRefund, booking); err != nil {
		return nil, err
	}
	if booking.PaymentStatus != model.PaymentCompleted {
		return nil, apperrors.Conflict("Only paid bookings can be refunded")
	}

	refund := &model.RefundRequest{
		BookingID: booking.ID,
		RenterID:  user.ID,
		Reason:    req.Reason,
	}
	if err := s.refunds.Create(ctx, refund); err != nil {
		if errors.Is(err, bookingserrors.ErrRefundAlreadyRequested) {
			return nil, apperrors.Conflict("A refund request is already pending for this booking")
		}
		s.cfg.Log.Error("Failed to create refund request", "booking_id", id, "error", err)
		return nil, apperrors.Internal("Failed to create refund request", err)
	}

	s.cfg.Log.Info("Refund requested", "refund_id", refund.ID, "booking_id", booking.ID)
	s.notifier.RefundRequested(ctx, s.bookingContext(ctx, booking, user.ID, refund.Reason))
	s.publish(ctx, model.EventRefundRequested, booking, booking.Status, user.ID)
	return refund, nil
}

// ApproveRefund marks the request approved and the booking REFUNDED in one
// transaction. A booking that has not started is cancelled as well.
func (s *bookingService) ApproveRefund(ctx context.Context, user *auth.User, refundID string) (*model.RefundRequest, error) {
	if err := s.validator.ValidateID("id", refundID); err != nil {
		return nil, apperrors.InvalidInput("Invalid refund request ID format")
	}
	if err := authorize(user, authz.ActionApproveRefund, nil); err != nil {
		return nil, err
	}

	refund, err := s.refunds.FindByID(ctx, refundID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrRefundNotFound) {
			return nil, apperrors.NotFoundWithID("Refund request", refundID)
		}
		return nil, apperrors.Internal("Failed to retrieve refund request", err)
	}
	if refund.Status != model.RefundPending {
		return nil, apperrors.Conflict("Refund request is not pending")
	}

	var (
		approved *model.RefundRequest
		updated  *model.Booking
		from     model.BookingStatus
	)
	now := s.now()
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		booking, err := s.repo.FindByID(txCtx, refund.BookingID)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", refund.BookingID)
			}
			return apperrors.Internal("Failed to retrieve booking", err)
		}
		if booking.PaymentStatus != model.PaymentCompleted {
			return apperrors.Conflict(fmt.Sprintf("Booking payment is %s and cannot be refunded", booking.PaymentStatus))
		}

		r, err := s.refunds.Approve(txCtx, refundID, user.ID, now)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrRefundNotPending) {
				return apperrors.Conflict("Refund request is not pending")
			}
			return apperrors.Internal("Failed to approve refund request", err)
		}

		t := model.BookingTransition{Status: booking.Status, PaymentStatus: model.PaymentRefunded}
		if booking.Status.CanTransitionTo(model.BookingCancelled) {
			t.Status = model.BookingCancelled
			t.CancelledAt = &now
			t.CancellationReason = "Refund approved"
		}
		b, err := s.repo.ApplyTransition(txCtx, booking.ID, booking.Status, t)
		if err != nil {
			return transitionError(err, booking.ID)
		}

		approved, updated, from = r, b, booking.Status
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to approve refund", "refund_id", refundID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Refund approved",
		"refund_id", refundID,
		"booking_id", updated.ID,
		"admin_id", user.ID,
	)
	s.notifier.RefundApproved(ctx, s.bookingContext(ctx, updated, user.ID, approved.Reason))
	s.publish(ctx, model.EventRefundApproved, updated, from, user.ID)
	return approved, nil
}

// transition loads, authorizes and conditionally updates a booking. It returns
// the updated booking and the status it left.
func (s *bookingService) transition(ctx context.Context, user *auth.User, id string, action lifecycleAction, reason string) (*model.Booking, model.BookingStatus, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := authorize(user, action.name, booking); err != nil {
		s.cfg.Log.Warn("Booking action denied",
			"booking_id", id,
			"action", action.name,
			"user_id", userID(user),
		)
		return nil, "", err
	}
	if !action.allows(booking.Status) {
		if booking.Status.IsTerminal() {
			return nil, "", apperrors.Conflict(fmt.Sprintf("Booking is already %s", booking.Status)).
				WithDetails(map[string]any{"status": booking.Status})
		}
		return nil, "", apperrors.Conflict(fmt.Sprintf("A %s booking cannot be %s", booking.Status, action.verb)).
			WithDetails(map[string]any{"status": booking.Status})
	}
	if action.requirePaid && booking.PaymentStatus != model.PaymentCompleted {
		return nil, "", apperrors.Conflict("Booking payment has not completed")
	}

	now := s.now()
	t := model.BookingTransition{
		Status:        action.target,
		PaymentStatus: booking.PaymentStatus,
	}
	switch action.target {
	case model.BookingConfirmed:
		t.ConfirmedAt = &now
	case model.BookingCancelled:
		t.CancelledAt = &now
		t.CancellationReason = reason
	}

	updated, err := s.repo.ApplyTransition(ctx, booking.ID, booking.Status, t)
	if err != nil {
		s.cfg.Log.Error("Failed to apply booking transition",
			"booking_id", id,
			"from", booking.Status,
			"to", action.target,
			"error", err,
		)
		return nil, "", transitionError(err, id)
	}

	if updated.OwnerID == "" {
		updated.OwnerID = booking.OwnerID
	}

	s.cfg.Log.Info("Booking status changed",
		"booking_id", id,
		"from", booking.Status,
		"to", updated.Status,
		"actor_id", user.ID,
	)
	return updated, booking.Status, nil
}

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	id = sanitizer.SanitizeID(id)
	if err := s.validator.ValidateID("id", id); err != nil {
		return nil, apperrors.InvalidInput("Invalid booking ID format")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	s.fillOwner(ctx, booking)
	return booking, nil
}

// fillOwner copies the listing owner onto bookings stored without owner_id,
// so authorization sees the same owner that notifications address.
func (s *bookingService) fillOwner(ctx context.Context, booking *model.Booking) {
	if booking.OwnerID != "" {
		return
	}
	listing, err := s.listings.FindByID(ctx, booking.ListingID)
	if err != nil {
		s.cfg.Log.Warn("Failed to resolve booking owner from listing",
			"booking_id", booking.ID,
			"listing_id", booking.ListingID,
			"error", err,
		)
		return
	}
	booking.OwnerID = listing.OwnerID
}

func (s *bookingService) reason(req *validator.ReasonRequest) (string, error) {
	if req == nil {
		return "", apperrors.InvalidInput("Request body is required")
	}
	req.Reason = sanitizer.SanitizeReason(req.Reason)
	if err := s.validator.Validate(req); err != nil {
		return "", validationError(err)
	}
	return req.Reason, nil
}

func (s *bookingService) bookingContext(ctx context.Context, booking *model.Booking, actorID, reason string) notifications.BookingContext {
	listing, err := s.listings.FindByID(ctx, booking.ListingID)
	if err != nil {
		s.cfg.Log.Error("Failed to load listing for notifications",
			"booking_id", booking.ID,
			"listing_id", booking.ListingID,
			"error", err,
		)
	}
	return notifications.BookingContext{
		Booking: booking,
		Listing: listing,
		Reason:  reason,
		ActorID: actorID,
	}
}

func (s *bookingService) publish(ctx context.Context, eventType model.BookingEventType, booking *model.Booking, from model.BookingStatus, actorID string) {
	err := s.publisher.Publish(ctx, model.BookingEvent{
		Type:          eventType,
		BookingID:     booking.ID,
		BookingNumber: booking.BookingNumber,
		FromStatus:    from,
		ToStatus:      booking.Status,
		PaymentStatus: booking.PaymentStatus,
		ActorID:       actorID,
		Source:        s.cfg.ServiceName,
		OccurredAt:    s.now(),
	})
	if err != nil {
		s.cfg.Log.Error("Failed to publish booking event",
			"type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

func authorize(user *auth.User, action authz.Action, booking *model.Booking) error {
	err := authz.Authorize(user, action, booking)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrUnauthenticated):
		return apperrors.Unauthorized("Authentication required")
	case errors.Is(err, authz.ErrForbidden):
		return apperrors.Forbidden("You are not allowed to perform this action")
	default:
		return apperrors.Internal("Authorization failed", err)
	}
}

func transitionError(err error, id string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrStatusChanged):
		return apperrors.Conflict("Booking status changed, please retry")
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	default:
		return apperrors.Internal("Failed to update booking", err)
	}
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation("Invalid request body", map[string]any{"fields": fieldErrs})
	}
	return apperrors.Validation("Invalid request body", map[string]any{"error": err.Error()})
}

func ownerOf(bc notifications.BookingContext) string {
	if bc.Listing != nil && bc.Listing.OwnerID != "" {
		return bc.Listing.OwnerID
	}
	return bc.Booking.OwnerID
}

func userID(user *auth.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}
