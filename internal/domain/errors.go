package domain

import "errors"

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
	ErrConflict              = errors.New("conflict")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrRecipientResolution   = errors.New("recipient resolution failed")
	ErrLedgerConsistency     = errors.New("ledger consistency violation")
	ErrIdempotencyRequired   = errors.New("idempotency key required")
	ErrIdempotencyConflict   = errors.New("idempotency conflict")
	ErrUnsupportedEventType  = errors.New("unsupported event type")
	ErrUnsupportedEventClass = errors.New("unsupported event class")
)

// TransferError is returned by the external payment processor adapter.
// Retryable distinguishes transient delivery failures from permanent
// rejections such as an invalid destination.
type TransferError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *TransferError) Error() string {
	return "transfer failed: " + e.Code + ": " + e.Message
}
