package model

import "time"

const (
	ParticipantRenter = "renter"
	ParticipantOwner  = "owner"
)

type Participant struct {
	UserID   string    `json:"user_id" bson:"user_id"`
	Role     string    `json:"role" bson:"role"`
	JoinedAt time.Time `json:"joined_at" bson:"joined_at"`
}

// Conversation is the messaging thread between renter and owner of a booking.
type Conversation struct {
	ID           string        `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID    string        `json:"booking_id" bson:"booking_id"`
	ListingID    string        `json:"listing_id" bson:"listing_id"`
	Participants []Participant `json:"participants" bson:"participants"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
}
