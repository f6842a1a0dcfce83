package model

import "time"

const ProviderYoco = "yoco"

// Payment is one checkout attempt for a booking. A booking may have several.
type Payment struct {
	ID              string        `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID       string        `json:"booking_id" bson:"booking_id"`
	Provider        string        `json:"provider" bson:"provider"`
	CheckoutID      string        `json:"checkout_id,omitempty" bson:"checkout_id,omitempty"`
	ProviderID      string        `json:"provider_id,omitempty" bson:"provider_id,omitempty"`
	Status          PaymentStatus `json:"status" bson:"status"`
	Amount          int64         `json:"amount" bson:"amount"`
	Currency        string        `json:"currency" bson:"currency"`
	DepositHold     bool          `json:"deposit_hold" bson:"deposit_hold"`
	DepositReleased bool          `json:"deposit_released" bson:"deposit_released"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" bson:"updated_at"`
}
