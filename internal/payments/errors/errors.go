package errors

import "errors"

var (
	ErrPaymentNotFound = errors.New("payment not found")

	ErrUnsupportedProvider = errors.New("unsupported payment provider")

	ErrMissingSignature = errors.New("missing webhook signature headers")

	ErrInvalidSignature = errors.New("invalid webhook signature")

	ErrMissingSecret = errors.New("webhook secret not configured")

	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrEventAlreadyProcessed is returned by the ledger when an event id has
	// already been applied.
	ErrEventAlreadyProcessed = errors.New("webhook event already processed")
)
