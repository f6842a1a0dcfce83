package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	// ErrStatusChanged means the booking left the expected status between
	// read and write.
	ErrStatusChanged = errors.New("booking status changed concurrently")

	ErrRefundNotFound = errors.New("refund request not found")

	ErrRefundAlreadyRequested = errors.New("a refund request is already pending for this booking")

	ErrRefundNotPending = errors.New("refund request is not pending")
)
