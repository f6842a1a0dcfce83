package model

import "time"

type NotificationType string

const (
	NotificationBookingRequest   NotificationType = "BOOKING_REQUEST"
	NotificationBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationBookingRejected  NotificationType = "BOOKING_REJECTED"
	NotificationBookingStarted   NotificationType = "BOOKING_STARTED"
	NotificationBookingCompleted NotificationType = "BOOKING_COMPLETED"
	NotificationRefundRequested  NotificationType = "REFUND_REQUESTED"
	NotificationRefundApproved   NotificationType = "REFUND_APPROVED"
)

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelPush  NotificationChannel = "PUSH"
)

// Notification is an in-app notification row. Delivery on the listed channels
// is handled elsewhere.
type Notification struct {
	ID        string                `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string                `json:"user_id" bson:"user_id"`
	Type      NotificationType      `json:"type" bson:"type"`
	Title     string                `json:"title" bson:"title"`
	Message   string                `json:"message" bson:"message"`
	Data      map[string]any        `json:"data,omitempty" bson:"data,omitempty"`
	Channels  []NotificationChannel `json:"channels" bson:"channels"`
	IsRead    bool                  `json:"is_read" bson:"is_read"`
	CreatedAt time.Time             `json:"created_at" bson:"created_at"`
}
