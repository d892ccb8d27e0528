package postgres

import (
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Ledger      ports.LedgerRepository
	SplitRules  ports.SplitRuleRepository
	Payouts     ports.PayoutRepository
	Idempotency ports.IdempotencyRepository
	EventDedup  ports.EventDedupRepository
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Ledger:      &ledgerRepository{db: db},
		SplitRules:  &splitRuleRepository{db: db},
		Payouts:     &payoutRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
		EventDedup:  &eventDedupRepository{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}
