package model

import (
	"time"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingInProgress BookingStatus = "IN_PROGRESS"
	BookingCompleted  BookingStatus = "COMPLETED"
	BookingCancelled  BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

// Booking is a reservation of a listing by a renter for a date range.
// Monetary fields are integer cents (ZAR).
type Booking struct {
	ID                 string        `json:"id,omitempty" bson:"_id,omitempty"`
	BookingNumber      string        `json:"booking_number" bson:"booking_number"`
	Status             BookingStatus `json:"status" bson:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status" bson:"payment_status"`
	StartDate          time.Time     `json:"start_date" bson:"start_date"`
	EndDate            time.Time     `json:"end_date" bson:"end_date"`
	Quantity           int           `json:"quantity" bson:"quantity"`
	Subtotal           int64         `json:"subtotal" bson:"subtotal"`
	ServiceFee         int64         `json:"service_fee" bson:"service_fee"`
	DeliveryFee        int64         `json:"delivery_fee" bson:"delivery_fee"`
	DepositAmount      int64         `json:"deposit_amount" bson:"deposit_amount"`
	TotalAmount        int64         `json:"total_amount" bson:"total_amount"`
	RenterID           string        `json:"renter_id" bson:"renter_id"`
	ListingID          string        `json:"listing_id" bson:"listing_id"`
	OwnerID            string        `json:"owner_id" bson:"owner_id"`
	CancellationReason string        `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" bson:"updated_at"`
}

// BookingTransition describes the fields written when a booking changes state.
// Nil timestamps are left untouched.
type BookingTransition struct {
	Status             BookingStatus
	PaymentStatus      PaymentStatus
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string
}

// Nights returns the number of rental days covered by the booking, minimum one.
func (b *Booking) Nights() int {
	days := int(b.EndDate.Sub(b.StartDate).Hours() / 24)
	return max(days, 1)
}
