package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
)

type TransactionQuery struct {
	AccountID string
	Limit     int
	Offset    int
}

// LedgerRepository persists the append-only double-entry ledger. AppendPair
// must write both entries in a single atomic unit: an orphaned half-pair
// violates the zero-sum invariant and is a consistency bug, not a
// recoverable error.
type LedgerRepository interface {
	Append(ctx context.Context, entry domain.LedgerEntry) error
	AppendPair(ctx context.Context, debit, credit domain.LedgerEntry) error
	GetByCorrelationID(ctx context.Context, correlationID string) ([]domain.LedgerEntry, error)
	ListByAccount(ctx context.Context, query TransactionQuery) ([]domain.LedgerEntry, int, error)
	AccountBalance(ctx context.Context, accountID string) (int64, error)
	GlobalTotals(ctx context.Context) (debits int64, credits int64, err error)
}

type SplitRuleRepository interface {
	Create(ctx context.Context, rule domain.SplitRule) error
	GetByID(ctx context.Context, ruleID string) (domain.SplitRule, error)
	// FindForEntity returns the active rule scoped to the exact entity id,
	// or nil when none exists.
	FindForEntity(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.SplitRule, error)
	// FindDefault returns the active rule flagged default for the entity
	// type, or nil when none exists.
	FindDefault(ctx context.Context, entityType domain.EntityType) (*domain.SplitRule, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]domain.SplitRule, int, error)
}

type PayoutQuery struct {
	AccountID string
	Status    domain.PayoutStatus
	Limit     int
	Offset    int
}

type PayoutRepository interface {
	Create(ctx context.Context, payout domain.Payout) error
	GetByID(ctx context.Context, payoutID string) (domain.Payout, error)
	List(ctx context.Context, query PayoutQuery) ([]domain.Payout, int, error)
	// ListDue selects pending payouts whose scheduled_for is due and whose
	// risk score is below maxRisk, ordered by scheduled_for ascending.
	ListDue(ctx context.Context, now time.Time, maxRisk float64, limit int) ([]domain.Payout, error)
	// CompareAndSwap persists payout only if the stored record still has
	// the expected status; returns domain.ErrConflict otherwise. This is
	// the guard against two scheduler instances double-processing one
	// payout.
	CompareAndSwap(ctx context.Context, payout domain.Payout, expected domain.PayoutStatus) error
	// RecentOutcomes reports the size and failure count of the account's
	// trailing payout history window.
	RecentOutcomes(ctx context.Context, accountID string, window int) (total int, failed int, err error)
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
	// Release drops a reservation that never completed so a corrected
	// retry is not locked out for the record's full TTL.
	Release(ctx context.Context, key string) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	CreatedAt  time.Time
	SentAt     *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}
