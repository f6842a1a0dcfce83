package model

import (
	"strconv"
	"strings"
	"time"
)

const (
	WebhookStatusSucceeded = "succeeded"

	MetadataRequiresConfirmation = "requires_confirmation"
	MetadataInstantBook          = "instant_book"
)

// WebhookEvent is the envelope the payment gateway posts to the webhook endpoint.
type WebhookEvent struct {
	ID      string          `json:"id" validate:"required"`
	Type    string          `json:"type" validate:"required"`
	Payload *WebhookPayload `json:"payload" validate:"required"`
}

type WebhookPayload struct {
	ID       string         `json:"id" validate:"required"`
	Status   string         `json:"status" validate:"required"`
	Amount   int64          `json:"amount"`
	Currency string         `json:"currency"`
	Metadata map[string]any `json:"metadata"`
}

func (p *WebhookPayload) Succeeded() bool {
	return p.Status == WebhookStatusSucceeded
}

// RequiresConfirmation reports whether the checkout was for a listing that
// needs the owner to accept the booking before it is confirmed.
func (p *WebhookPayload) RequiresConfirmation() bool {
	if Truthy(p.Metadata[MetadataRequiresConfirmation]) {
		return true
	}
	if v, ok := p.Metadata[MetadataInstantBook]; ok && v != nil {
		return !Truthy(v)
	}
	return false
}

// HasConfirmationHint reports whether the checkout metadata states either
// confirmation flag.
func (p *WebhookPayload) HasConfirmationHint() bool {
	for _, key := range []string{MetadataRequiresConfirmation, MetadataInstantBook} {
		if v, ok := p.Metadata[key]; ok && v != nil {
			return true
		}
	}
	return false
}

// ProcessedWebhook is a ledger row recording that a gateway event id was applied.
type ProcessedWebhook struct {
	EventID    string    `json:"event_id" bson:"_id"`
	Provider   string    `json:"provider" bson:"provider"`
	Type       string    `json:"type" bson:"type"`
	CheckoutID string    `json:"checkout_id" bson:"checkout_id"`
	PaymentID  string    `json:"payment_id" bson:"payment_id"`
	Status     string    `json:"status" bson:"status"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
}

// Truthy interprets loosely-typed metadata values the way checkout metadata is written.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}
