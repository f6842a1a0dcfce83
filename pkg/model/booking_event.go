package model

import "time"

type BookingEventType string

const (
	EventPaymentSucceeded     BookingEventType = "booking.payment_succeeded"
	EventAwaitingConfirmation BookingEventType = "booking.awaiting_confirmation"
	EventPaymentFailed        BookingEventType = "booking.payment_failed"
	EventConfirmed            BookingEventType = "booking.confirmed"
	EventRejected             BookingEventType = "booking.rejected"
	EventCancelled            BookingEventType = "booking.cancelled"
	EventStarted              BookingEventType = "booking.started"
	EventCompleted            BookingEventType = "booking.completed"
	EventRefundRequested      BookingEventType = "booking.refund_requested"
	EventRefundApproved       BookingEventType = "booking.refund_approved"
)

// BookingEvent is published on the booking events topic after a state change commits.
type BookingEvent struct {
	Type          BookingEventType `json:"type"`
	BookingID     string           `json:"booking_id"`
	BookingNumber string           `json:"booking_number"`
	FromStatus    BookingStatus    `json:"from_status"`
	ToStatus      BookingStatus    `json:"to_status"`
	PaymentStatus PaymentStatus    `json:"payment_status"`
	ActorID       string           `json:"actor_id,omitempty"`
	Source        string           `json:"source"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// BookingHistoryEntry is the audit record persisted for each BookingEvent.
type BookingHistoryEntry struct {
	ID            string           `json:"id,omitempty" bson:"_id,omitempty"`
	EventID       string           `json:"event_id" bson:"event_id"`
	BookingID     string           `json:"booking_id" bson:"booking_id"`
	Type          BookingEventType `json:"type" bson:"type"`
	FromStatus    BookingStatus    `json:"from_status" bson:"from_status"`
	ToStatus      BookingStatus    `json:"to_status" bson:"to_status"`
	PaymentStatus PaymentStatus    `json:"payment_status" bson:"payment_status"`
	ActorID       string           `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Source        string           `json:"source" bson:"source"`
	OccurredAt    time.Time        `json:"occurred_at" bson:"occurred_at"`
	RecordedAt    time.Time        `json:"recorded_at" bson:"recorded_at"`
}
