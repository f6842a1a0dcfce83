package model

import "time"

type RefundStatus string

const (
	RefundPending  RefundStatus = "PENDING"
	RefundApproved RefundStatus = "APPROVED"
)

type RefundRequest struct {
	ID         string       `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID  string       `json:"booking_id" bson:"booking_id"`
	RenterID   string       `json:"renter_id" bson:"renter_id"`
	Reason     string       `json:"reason" bson:"reason" validate:"required,min=5,max=1000"`
	Status     RefundStatus `json:"status" bson:"status"`
	ResolvedBy string       `json:"resolved_by,omitempty" bson:"resolved_by,omitempty"`
	CreatedAt  time.Time    `json:"created_at" bson:"created_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}
