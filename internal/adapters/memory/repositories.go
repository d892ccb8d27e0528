package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

type Repositories struct {
	Ledger      *LedgerRepository
	SplitRules  *SplitRuleRepository
	Payouts     *PayoutRepository
	Idempotency *IdempotencyRepository
	EventDedup  *EventDedupRepository
	Outbox      *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Ledger:      NewLedgerRepository(),
		SplitRules:  NewSplitRuleRepository(),
		Payouts:     NewPayoutRepository(),
		Idempotency: NewIdempotencyRepository(),
		EventDedup:  NewEventDedupRepository(),
		Outbox:      NewOutboxRepository(),
	}
}

type LedgerRepository struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

func (r *LedgerRepository) Append(_ context.Context, entry domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *LedgerRepository) AppendPair(_ context.Context, debit, credit domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, debit, credit)
	return nil
}

func (r *LedgerRepository) GetByCorrelationID(_ context.Context, correlationID string) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, entry := range r.entries {
		if entry.CorrelationID == correlationID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *LedgerRepository) ListByAccount(_ context.Context, query ports.TransactionQuery) ([]domain.LedgerEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]domain.LedgerEntry, 0)
	for _, entry := range r.entries {
		if entry.AccountID == query.AccountID {
			items = append(items, entry)
		}
	}
	slices.SortFunc(items, func(a, b domain.LedgerEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	total := len(items)
	if query.Offset >= len(items) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := query.Offset + query.Limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]domain.LedgerEntry, end-query.Offset)
	copy(out, items[query.Offset:end])
	return out, total, nil
}

func (r *LedgerRepository) AccountBalance(_ context.Context, accountID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var balance int64
	for _, entry := range r.entries {
		if entry.AccountID != accountID {
			continue
		}
		switch entry.Kind {
		case domain.EntryKindCredit:
			balance += entry.AmountMinorUnits
		case domain.EntryKindDebit:
			balance -= entry.AmountMinorUnits
		}
	}
	return balance, nil
}

func (r *LedgerRepository) GlobalTotals(_ context.Context) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var debits, credits int64
	for _, entry := range r.entries {
		switch entry.Kind {
		case domain.EntryKindDebit:
			debits += entry.AmountMinorUnits
		case domain.EntryKindCredit:
			credits += entry.AmountMinorUnits
		}
	}
	return debits, credits, nil
}

type SplitRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]domain.SplitRule
	order []string
}

func NewSplitRuleRepository() *SplitRuleRepository {
	return &SplitRuleRepository{rules: make(map[string]domain.SplitRule)}
}

func (r *SplitRuleRepository) Create(_ context.Context, rule domain.SplitRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.RuleID] = rule
	r.order = append(r.order, rule.RuleID)
	return nil
}

func (r *SplitRuleRepository) GetByID(_ context.Context, ruleID string) (domain.SplitRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[ruleID]
	if !ok {
		return domain.SplitRule{}, domain.ErrNotFound
	}
	return rule, nil
}

func (r *SplitRuleRepository) FindForEntity(_ context.Context, entityType domain.EntityType, entityID string) (*domain.SplitRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		rule := r.rules[id]
		if rule.IsActive && rule.EntityType == entityType && rule.EntityID == entityID && entityID != "" {
			clone := rule
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *SplitRuleRepository) FindDefault(_ context.Context, entityType domain.EntityType) (*domain.SplitRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		rule := r.rules[id]
		if rule.IsActive && rule.IsDefault && rule.EntityType == entityType {
			clone := rule
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *SplitRuleRepository) List(_ context.Context, ownerID string, limit, offset int) ([]domain.SplitRule, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]domain.SplitRule, 0)
	for _, id := range r.order {
		rule := r.rules[id]
		if ownerID != "" && rule.OwnerID != ownerID {
			continue
		}
		items = append(items, rule)
	}
	total := len(items)
	if limit <= 0 {
		limit = 20
	}
	if offset >= len(items) {
		return []domain.SplitRule{}, total, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], total, nil
}

type PayoutRepository struct {
	mu      sync.RWMutex
	payouts map[string]domain.Payout
	order   []string
}

func NewPayoutRepository() *PayoutRepository {
	return &PayoutRepository{payouts: make(map[string]domain.Payout)}
}

func (r *PayoutRepository) Create(_ context.Context, payout domain.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payouts[payout.PayoutID] = payout
	r.order = append(r.order, payout.PayoutID)
	return nil
}

func (r *PayoutRepository) GetByID(_ context.Context, payoutID string) (domain.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payout, ok := r.payouts[payoutID]
	if !ok {
		return domain.Payout{}, domain.ErrNotFound
	}
	return payout, nil
}

func (r *PayoutRepository) List(_ context.Context, query ports.PayoutQuery) ([]domain.Payout, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]domain.Payout, 0, len(r.payouts))
	for _, payout := range r.payouts {
		if query.AccountID != "" && payout.AccountID != query.AccountID {
			continue
		}
		if query.Status != "" && payout.Status != query.Status {
			continue
		}
		items = append(items, payout)
	}
	slices.SortFunc(items, func(a, b domain.Payout) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	total := len(items)
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Offset >= len(items) {
		return []domain.Payout{}, total, nil
	}
	end := query.Offset + query.Limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]domain.Payout, end-query.Offset)
	copy(out, items[query.Offset:end])
	return out, total, nil
}

func (r *PayoutRepository) ListDue(_ context.Context, now time.Time, maxRisk float64, limit int) ([]domain.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]domain.Payout, 0)
	for _, payout := range r.payouts {
		if payout.Status != domain.PayoutStatusPending {
			continue
		}
		if payout.ScheduledFor.After(now) {
			continue
		}
		if payout.RiskScore >= maxRisk {
			continue
		}
		items = append(items, payout)
	}
	slices.SortFunc(items, func(a, b domain.Payout) int {
		return a.ScheduledFor.Compare(b.ScheduledFor)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *PayoutRepository) CompareAndSwap(_ context.Context, payout domain.Payout, expected domain.PayoutStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.payouts[payout.PayoutID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != expected {
		return domain.ErrConflict
	}
	r.payouts[payout.PayoutID] = payout
	return nil
}

func (r *PayoutRepository) RecentOutcomes(_ context.Context, accountID string, window int) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]domain.Payout, 0)
	for _, payout := range r.payouts {
		if payout.AccountID != accountID {
			continue
		}
		if payout.Status != domain.PayoutStatusCompleted && payout.Status != domain.PayoutStatusFailed {
			continue
		}
		items = append(items, payout)
	}
	slices.SortFunc(items, func(a, b domain.Payout) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if window > 0 && len(items) > window {
		items = items[:window]
	}
	failed := 0
	for _, payout := range items {
		if payout.Status == domain.PayoutStatusFailed {
			failed++
		}
	}
	return len(items), failed, nil
}
