package domain

import (
	"fmt"
	"strings"
	"time"
)

type PayoutStatus string
type PayoutType string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

const (
	PayoutTypeScheduled PayoutType = "scheduled"
	PayoutTypeInstant   PayoutType = "instant"
	PayoutTypeManual    PayoutType = "manual"
)

// Payout is a pending obligation to move funds to a recipient's external
// destination. Created pending; mutated only by the payout processor.
type Payout struct {
	PayoutID           string            `json:"payout_id"`
	AccountID          string            `json:"account_id"`
	AmountMinorUnits   int64             `json:"amount_minor_units"`
	Currency           string            `json:"currency"`
	Status             PayoutStatus      `json:"status"`
	PayoutType         PayoutType        `json:"payout_type"`
	RiskScore          float64           `json:"risk_score"`
	ExternalTransferID string            `json:"external_transfer_id,omitempty"`
	ScheduledFor       time.Time         `json:"scheduled_for"`
	InitiatedAt        time.Time         `json:"initiated_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	FailureCode        string            `json:"failure_code,omitempty"`
	FailureMessage     string            `json:"failure_message,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func ValidPayoutType(payoutType PayoutType) bool {
	switch payoutType {
	case PayoutTypeScheduled, PayoutTypeInstant, PayoutTypeManual:
		return true
	default:
		return false
	}
}

// CanTransition encodes the payout state machine:
// pending -> processing -> {completed | failed}, pending -> cancelled.
func CanTransition(from, to PayoutStatus) bool {
	switch from {
	case PayoutStatusPending:
		return to == PayoutStatusProcessing || to == PayoutStatusCancelled
	case PayoutStatusProcessing:
		return to == PayoutStatusCompleted || to == PayoutStatusFailed
	default:
		return false
	}
}

func ValidatePayoutInput(accountID string, amountMinorUnits int64, payoutType PayoutType) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id required", ErrValidation)
	}
	if amountMinorUnits <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !ValidPayoutType(payoutType) {
		return fmt.Errorf("%w: unknown payout type %s", ErrValidation, payoutType)
	}
	return nil
}
