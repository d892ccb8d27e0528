package contracts

import "time"

type CreateLedgerEntryRequest struct {
	AccountID        string            `json:"account_id"`
	AmountMinorUnits int64             `json:"amount_minor_units"`
	Currency         string            `json:"currency"`
	Kind             string            `json:"kind"`
	EventSource      string            `json:"event_source"`
	ReferenceID      string            `json:"reference_id,omitempty"`
	CorrelationID    string            `json:"correlation_id,omitempty"`
	Description      string            `json:"description,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type LedgerTransferRequest struct {
	DebitAccountID   string            `json:"debit_account_id"`
	CreditAccountID  string            `json:"credit_account_id"`
	AmountMinorUnits int64             `json:"amount_minor_units"`
	Currency         string            `json:"currency"`
	EventSource      string            `json:"event_source"`
	ReferenceID      string            `json:"reference_id,omitempty"`
	Description      string            `json:"description,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type ApplySplitsRequest struct {
	PurchaseID       string `json:"purchase_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	Currency         string `json:"currency"`
	EntityType       string `json:"entity_type"`
	EntityID         string `json:"entity_id,omitempty"`
}

type SplitRecipientPayload struct {
	RecipientID string  `json:"recipient_id,omitempty"`
	Role        string  `json:"role"`
	Percent     float64 `json:"percent"`
}

type CreateSplitRuleRequest struct {
	OwnerID    string                  `json:"owner_id"`
	Name       string                  `json:"name"`
	EntityType string                  `json:"entity_type"`
	EntityID   string                  `json:"entity_id,omitempty"`
	Recipients []SplitRecipientPayload `json:"recipients"`
	IsDefault  bool                    `json:"is_default"`
}

type QueuePayoutRequest struct {
	AccountID        string    `json:"account_id"`
	AmountMinorUnits int64     `json:"amount_minor_units"`
	Currency         string    `json:"currency"`
	PayoutType       string    `json:"payout_type"`
	ScheduledFor     time.Time `json:"scheduled_for,omitempty"`
}

type InstantPayoutRequest struct {
	AccountID        string `json:"account_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	Currency         string `json:"currency"`
}

type RecordDisputeRequest struct {
	ReferenceID string `json:"reference_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}
