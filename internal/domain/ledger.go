package domain

import (
	"fmt"
	"strings"
	"time"
)

type EntryKind string

const (
	EntryKindDebit  EntryKind = "debit"
	EntryKindCredit EntryKind = "credit"
)

type EventSource string

const (
	EventSourceCharge      EventSource = "charge"
	EventSourceRefund      EventSource = "refund"
	EventSourceSplit       EventSource = "split"
	EventSourceAttribution EventSource = "attribution"
	EventSourceAdjustment  EventSource = "adjustment"
	EventSourcePayout      EventSource = "payout"
)

// LedgerEntry is one half of a double-entry record. Entries are immutable
// once written; every entry shares a correlation ID with exactly one
// counter-entry of the opposite kind.
type LedgerEntry struct {
	EntryID          string            `json:"entry_id"`
	AccountID        string            `json:"account_id"`
	AmountMinorUnits int64             `json:"amount_minor_units"`
	Currency         string            `json:"currency"`
	Kind             EntryKind         `json:"kind"`
	EventSource      EventSource       `json:"event_source"`
	ReferenceID      string            `json:"reference_id,omitempty"`
	CorrelationID    string            `json:"correlation_id"`
	Description      string            `json:"description,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// BalanceReport is the output of the global zero-sum consistency check.
// Any non-zero imbalance indicates corruption and must alert operators.
type BalanceReport struct {
	IsBalanced     bool      `json:"is_balanced"`
	TotalDebits    int64     `json:"total_debits"`
	TotalCredits   int64     `json:"total_credits"`
	TotalImbalance int64     `json:"total_imbalance"`
	CheckedAt      time.Time `json:"checked_at"`
}

func ValidEntryKind(kind EntryKind) bool {
	return kind == EntryKindDebit || kind == EntryKindCredit
}

func ValidEventSource(source EventSource) bool {
	switch source {
	case EventSourceCharge, EventSourceRefund, EventSourceSplit, EventSourceAttribution, EventSourceAdjustment, EventSourcePayout:
		return true
	default:
		return false
	}
}

func ValidateEntryInput(accountID string, amountMinorUnits int64, kind EntryKind, source EventSource) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id required", ErrValidation)
	}
	if amountMinorUnits <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !ValidEntryKind(kind) {
		return fmt.Errorf("%w: unknown entry kind %s", ErrValidation, kind)
	}
	if !ValidEventSource(source) {
		return fmt.Errorf("%w: unknown event source %s", ErrValidation, source)
	}
	return nil
}

func ValidatePairInput(debitAccountID, creditAccountID string, amountMinorUnits int64, source EventSource) error {
	if strings.TrimSpace(debitAccountID) == "" || strings.TrimSpace(creditAccountID) == "" {
		return fmt.Errorf("%w: both accounts required", ErrValidation)
	}
	if debitAccountID == creditAccountID {
		return fmt.Errorf("%w: debit and credit accounts must differ", ErrValidation)
	}
	if amountMinorUnits <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !ValidEventSource(source) {
		return fmt.Errorf("%w: unknown event source %s", ErrValidation, source)
	}
	return nil
}
