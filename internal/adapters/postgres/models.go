package postgres

import (
	"time"
)

type ledgerEntryModel struct {
	EntryID          string    `gorm:"column:entry_id;primaryKey"`
	AccountID        string    `gorm:"column:account_id"`
	AmountMinorUnits int64     `gorm:"column:amount_minor_units"`
	Currency         string    `gorm:"column:currency"`
	Kind             string    `gorm:"column:kind"`
	EventSource      string    `gorm:"column:event_source"`
	ReferenceID      string    `gorm:"column:reference_id"`
	CorrelationID    string    `gorm:"column:correlation_id"`
	Description      string    `gorm:"column:description"`
	Metadata         string    `gorm:"column:metadata"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (ledgerEntryModel) TableName() string { return "ledger_entries" }

type splitRuleModel struct {
	RuleID     string    `gorm:"column:rule_id;primaryKey"`
	OwnerID    string    `gorm:"column:owner_id"`
	Name       string    `gorm:"column:name"`
	EntityType string    `gorm:"column:entity_type"`
	EntityID   string    `gorm:"column:entity_id"`
	Recipients string    `gorm:"column:recipients"`
	IsDefault  bool      `gorm:"column:is_default"`
	IsActive   bool      `gorm:"column:is_active"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (splitRuleModel) TableName() string { return "split_rules" }

type payoutModel struct {
	PayoutID           string     `gorm:"column:payout_id;primaryKey"`
	AccountID          string     `gorm:"column:account_id"`
	AmountMinorUnits   int64      `gorm:"column:amount_minor_units"`
	Currency           string     `gorm:"column:currency"`
	Status             string     `gorm:"column:status"`
	PayoutType         string     `gorm:"column:payout_type"`
	RiskScore          float64    `gorm:"column:risk_score"`
	ExternalTransferID string     `gorm:"column:external_transfer_id"`
	ScheduledFor       time.Time  `gorm:"column:scheduled_for"`
	InitiatedAt        *time.Time `gorm:"column:initiated_at"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
	FailureCode        string     `gorm:"column:failure_code"`
	FailureMessage     string     `gorm:"column:failure_message"`
	Metadata           string     `gorm:"column:metadata"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (payoutModel) TableName() string { return "payouts" }

type revenueIdempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (revenueIdempotencyModel) TableName() string { return "revenue_idempotency" }

type revenueEventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (revenueEventDedupModel) TableName() string { return "revenue_event_dedup" }

type revenueOutboxModel struct {
	OutboxID         string     `gorm:"column:outbox_id;primaryKey"`
	EventType        string     `gorm:"column:event_type"`
	EventClass       string     `gorm:"column:event_class"`
	PartitionKey     string     `gorm:"column:partition_key"`
	PartitionKeyPath string     `gorm:"column:partition_key_path"`
	Payload          string     `gorm:"column:payload"`
	SchemaVersion    string     `gorm:"column:schema_version"`
	SourceService    string     `gorm:"column:source_service"`
	TraceID          string     `gorm:"column:trace_id"`
	OccurredAt       time.Time  `gorm:"column:occurred_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	PublishedAt      *time.Time `gorm:"column:published_at"`
}

func (revenueOutboxModel) TableName() string { return "revenue_outbox" }
