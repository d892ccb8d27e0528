package application

import (
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

type Config struct {
	ServiceName              string
	DefaultCurrency          string
	PlatformReserveAccountID string

	MinPayoutMinorUnits       int64
	InstantCeilingMinorUnits  int64
	BatchHourUTC              int
	BatchSize                 int
	TransferTimeout           time.Duration
	MaxTransferAttempts       int
	TransferRetryBackoff      time.Duration
	BatchLockTTL              time.Duration

	Risk domain.RiskPolicy

	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration
	OutboxFlushBatchSize int
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

type ApplySplitsInput struct {
	PurchaseID       string
	AmountMinorUnits int64
	Currency         string
	EntityType       domain.EntityType
	EntityID         string
}

type ApplySplitsResult struct {
	PurchaseID       string              `json:"purchase_id"`
	AmountMinorUnits int64               `json:"amount_minor_units"`
	Shares           []domain.SplitShare `json:"shares"`
	PayoutIDs        []string            `json:"payout_ids"`
	SkippedRoles     []string            `json:"skipped_roles,omitempty"`
}

type CreateSplitRuleInput struct {
	OwnerID    string
	Name       string
	EntityType domain.EntityType
	EntityID   string
	Recipients []domain.SplitRecipient
	IsDefault  bool
}

type QueuePayoutInput struct {
	AccountID        string
	AmountMinorUnits int64
	Currency         string
	PayoutType       domain.PayoutType
	ScheduledFor     time.Time
}

type SplitRuleListOutput struct {
	Items      []domain.SplitRule
	Pagination contracts.Pagination
}

type PayoutListOutput struct {
	Items      []domain.Payout
	Pagination contracts.Pagination
}

type TransactionListOutput struct {
	Items      []domain.LedgerEntry
	Pagination contracts.Pagination
}

type BatchResult struct {
	Selected  int `json:"selected"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

type Service struct {
	cfg    Config
	logger *slog.Logger

	ledger      ports.LedgerRepository
	splitRules  ports.SplitRuleRepository
	payouts     ports.PayoutRepository
	idempotency ports.IdempotencyRepository
	eventDedup  ports.EventDedupRepository
	outbox      ports.OutboxRepository

	accounts     ports.AccountDirectory
	roles        ports.RoleResolver
	destinations ports.DestinationReader
	transfers    ports.TransferClient

	disputes  ports.DisputeStats
	batchLock ports.ProcessingLock

	domainEvents ports.DomainPublisher
	analytics    ports.AnalyticsPublisher
	dlq          ports.DLQPublisher
	nowFn        func() time.Time
}

type Dependencies struct {
	Config Config
	Logger *slog.Logger

	Ledger      ports.LedgerRepository
	SplitRules  ports.SplitRuleRepository
	Payouts     ports.PayoutRepository
	Idempotency ports.IdempotencyRepository
	EventDedup  ports.EventDedupRepository
	Outbox      ports.OutboxRepository

	Accounts     ports.AccountDirectory
	Roles        ports.RoleResolver
	Destinations ports.DestinationReader
	Transfers    ports.TransferClient

	Disputes  ports.DisputeStats
	BatchLock ports.ProcessingLock

	DomainEvents ports.DomainPublisher
	Analytics    ports.AnalyticsPublisher
	DLQ          ports.DLQPublisher
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M15-Revenue-Accounting-Service"
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	if cfg.PlatformReserveAccountID == "" {
		cfg.PlatformReserveAccountID = "platform-reserve"
	}
	if cfg.MinPayoutMinorUnits <= 0 {
		cfg.MinPayoutMinorUnits = 2500
	}
	if cfg.InstantCeilingMinorUnits <= 0 {
		cfg.InstantCeilingMinorUnits = 100000
	}
	if cfg.BatchHourUTC < 0 || cfg.BatchHourUTC > 23 {
		cfg.BatchHourUTC = 2
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.TransferTimeout <= 0 {
		cfg.TransferTimeout = 15 * time.Second
	}
	if cfg.MaxTransferAttempts <= 0 {
		cfg.MaxTransferAttempts = 3
	}
	if cfg.TransferRetryBackoff <= 0 {
		cfg.TransferRetryBackoff = 2 * time.Second
	}
	if cfg.BatchLockTTL <= 0 {
		cfg.BatchLockTTL = 5 * time.Minute
	}
	if cfg.Risk.HoldThreshold <= 0 {
		cfg.Risk = domain.DefaultRiskPolicy()
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:          cfg,
		logger:       logger.With("service", cfg.ServiceName, "layer", "application"),
		ledger:       deps.Ledger,
		splitRules:   deps.SplitRules,
		payouts:      deps.Payouts,
		idempotency:  deps.Idempotency,
		eventDedup:   deps.EventDedup,
		outbox:       deps.Outbox,
		accounts:     deps.Accounts,
		roles:        deps.Roles,
		destinations: deps.Destinations,
		transfers:    deps.Transfers,
		disputes:     deps.Disputes,
		batchLock:    deps.BatchLock,
		domainEvents: deps.DomainEvents,
		analytics:    deps.Analytics,
		dlq:          deps.DLQ,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}
