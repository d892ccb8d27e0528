package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type PurchaseCompletedPayload struct {
	PurchaseID       string `json:"purchase_id"`
	EntityType       string `json:"entity_type"`
	EntityID         string `json:"entity_id,omitempty"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	Currency         string `json:"currency"`
	CompletedAt      string `json:"completed_at"`
}

type SplitSharePayload struct {
	RecipientID      string `json:"recipient_id"`
	Role             string `json:"role"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
}

type SplitAppliedPayload struct {
	PurchaseID       string              `json:"purchase_id"`
	EntityType       string              `json:"entity_type"`
	AmountMinorUnits int64               `json:"amount_minor_units"`
	Shares           []SplitSharePayload `json:"shares"`
	AppliedAt        string              `json:"applied_at"`
}

type LedgerImbalancePayload struct {
	TotalDebits    int64  `json:"total_debits"`
	TotalCredits   int64  `json:"total_credits"`
	TotalImbalance int64  `json:"total_imbalance"`
	CheckedAt      string `json:"checked_at"`
}

type PayoutProcessingPayload struct {
	PayoutID         string  `json:"payout_id"`
	AccountID        string  `json:"account_id"`
	AmountMinorUnits int64   `json:"amount_minor_units"`
	PayoutType       string  `json:"payout_type"`
	RiskScore        float64 `json:"risk_score"`
	InitiatedAt      string  `json:"initiated_at"`
}

type PayoutCompletedPayload struct {
	PayoutID           string `json:"payout_id"`
	AccountID          string `json:"account_id"`
	AmountMinorUnits   int64  `json:"amount_minor_units"`
	PayoutType         string `json:"payout_type"`
	ExternalTransferID string `json:"external_transfer_id"`
	CompletedAt        string `json:"completed_at"`
}

type PayoutFailedPayload struct {
	PayoutID         string `json:"payout_id"`
	AccountID        string `json:"account_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	PayoutType       string `json:"payout_type"`
	FailureCode      string `json:"failure_code"`
	FailureMessage   string `json:"failure_message"`
	FailedAt         string `json:"failed_at"`
}

type PayoutCancelledPayload struct {
	PayoutID         string `json:"payout_id"`
	AccountID        string `json:"account_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	CancelledAt      string `json:"cancelled_at"`
}

type DLQRecord struct {
	OriginalEvent EventEnvelope `json:"original_event"`
	ErrorSummary  string        `json:"error_summary"`
	RetryCount    int           `json:"retry_count"`
	FirstSeenAt   time.Time     `json:"first_seen_at"`
	LastErrorAt   time.Time     `json:"last_error_at"`
	SourceTopic   string        `json:"source_topic,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
}
