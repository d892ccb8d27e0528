package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	MaxDBConns  int32
	RedisURL    string

	AccountGRPCURL string
	CatalogGRPCURL string
	ProfileGRPCURL string

	ProcessorBaseURL string
	ProcessorAPIKey  string

	KafkaBrokers       []string
	KafkaConsumerGroup string
	TopicPurchases     string
	TopicDomainEvents  string
	TopicAnalytics     string
	DLQTopic           string

	DefaultCurrency          string
	PlatformReserveAccountID string
	MinPayoutMinorUnits      int64
	InstantCeilingMinorUnits int64
	BatchHourUTC             int
	BatchSize                int
	BatchInterval            time.Duration
	BatchLockTTL             time.Duration
	TransferTimeout          time.Duration
	MaxTransferAttempts      int
	TransferRetryBackoff     time.Duration

	Risk domain.RiskPolicy

	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration
	OutboxPollInterval   time.Duration
	OutboxFlushBatchSize int
	ConsumerPollInterval time.Duration
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		DatabaseURL        string   `yaml:"database_url"`
		MaxDBConns         int32    `yaml:"max_db_conns"`
		RedisURL           string   `yaml:"redis_url"`
		AccountGRPCURL     string   `yaml:"account_grpc_url"`
		CatalogGRPCURL     string   `yaml:"catalog_grpc_url"`
		ProfileGRPCURL     string   `yaml:"profile_grpc_url"`
		ProcessorBaseURL   string   `yaml:"processor_base_url"`
		ProcessorAPIKey    string   `yaml:"processor_api_key"`
		KafkaBrokers       []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup string   `yaml:"kafka_consumer_group"`
		TopicPurchases     string   `yaml:"topic_purchases"`
		TopicDomainEvents  string   `yaml:"topic_domain_events"`
		TopicAnalytics     string   `yaml:"topic_analytics"`
		TopicDLQ           string   `yaml:"topic_dlq"`
	} `yaml:"dependencies"`
	Revenue struct {
		DefaultCurrency          string `yaml:"default_currency"`
		PlatformReserveAccountID string `yaml:"platform_reserve_account_id"`
		MinPayoutMinorUnits      int64  `yaml:"min_payout_minor_units"`
		InstantCeilingMinorUnits int64  `yaml:"instant_ceiling_minor_units"`
		BatchHourUTC             *int   `yaml:"batch_hour_utc"`
		BatchSize                int    `yaml:"batch_size"`
		MaxTransferAttempts      int    `yaml:"max_transfer_attempts"`
	} `yaml:"revenue"`
	Risk struct {
		HoldThreshold          *float64 `yaml:"hold_threshold"`
		NewAccountHoldDays     *int     `yaml:"new_account_hold_days"`
		LargeAmountMinorUnits  *int64   `yaml:"large_amount_minor_units"`
		VeryLargeMinorUnits    *int64   `yaml:"very_large_minor_units"`
		FailureHistoryWindow   *int     `yaml:"failure_history_window"`
		DisputeWindowDays      *int     `yaml:"dispute_window_days"`
		DisputeSaturationCount *int     `yaml:"dispute_saturation_count"`
	} `yaml:"risk"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                "M15-Revenue-Accounting-Service",
		HTTPPort:                 8080,
		GRPCPort:                 9090,
		KafkaConsumerGroup:       "m15-revenue-accounting-service",
		TopicPurchases:           "checkout.purchase_completed",
		TopicDomainEvents:        "ledger.events",
		TopicAnalytics:           "revenue.analytics",
		DLQTopic:                 "revenue-accounting.dlq",
		DefaultCurrency:          "USD",
		PlatformReserveAccountID: "platform-reserve",
		MinPayoutMinorUnits:      2500,
		InstantCeilingMinorUnits: 100000,
		BatchHourUTC:             2,
		BatchSize:                50,
		BatchInterval:            time.Minute,
		BatchLockTTL:             5 * time.Minute,
		TransferTimeout:          15 * time.Second,
		MaxTransferAttempts:      3,
		TransferRetryBackoff:     2 * time.Second,
		Risk:                     domain.DefaultRiskPolicy(),
		IdempotencyTTL:           7 * 24 * time.Hour,
		EventDedupTTL:            7 * 24 * time.Hour,
		OutboxPollInterval:       2 * time.Second,
		OutboxFlushBatchSize:     100,
		ConsumerPollInterval:     2 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		cfg.DatabaseURL = f.Dependencies.DatabaseURL
		if f.Dependencies.MaxDBConns > 0 {
			cfg.MaxDBConns = f.Dependencies.MaxDBConns
		}
		cfg.RedisURL = f.Dependencies.RedisURL
		cfg.AccountGRPCURL = f.Dependencies.AccountGRPCURL
		cfg.CatalogGRPCURL = f.Dependencies.CatalogGRPCURL
		cfg.ProfileGRPCURL = f.Dependencies.ProfileGRPCURL
		cfg.ProcessorBaseURL = f.Dependencies.ProcessorBaseURL
		cfg.ProcessorAPIKey = f.Dependencies.ProcessorAPIKey
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.KafkaConsumerGroup != "" {
			cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
		}
		if f.Dependencies.TopicPurchases != "" {
			cfg.TopicPurchases = f.Dependencies.TopicPurchases
		}
		if f.Dependencies.TopicDomainEvents != "" {
			cfg.TopicDomainEvents = f.Dependencies.TopicDomainEvents
		}
		if f.Dependencies.TopicAnalytics != "" {
			cfg.TopicAnalytics = f.Dependencies.TopicAnalytics
		}
		if f.Dependencies.TopicDLQ != "" {
			cfg.DLQTopic = f.Dependencies.TopicDLQ
		}
		if f.Revenue.DefaultCurrency != "" {
			cfg.DefaultCurrency = strings.ToUpper(f.Revenue.DefaultCurrency)
		}
		if f.Revenue.PlatformReserveAccountID != "" {
			cfg.PlatformReserveAccountID = f.Revenue.PlatformReserveAccountID
		}
		if f.Revenue.MinPayoutMinorUnits > 0 {
			cfg.MinPayoutMinorUnits = f.Revenue.MinPayoutMinorUnits
		}
		if f.Revenue.InstantCeilingMinorUnits > 0 {
			cfg.InstantCeilingMinorUnits = f.Revenue.InstantCeilingMinorUnits
		}
		if f.Revenue.BatchHourUTC != nil {
			cfg.BatchHourUTC = *f.Revenue.BatchHourUTC
		}
		if f.Revenue.BatchSize > 0 {
			cfg.BatchSize = f.Revenue.BatchSize
		}
		if f.Revenue.MaxTransferAttempts > 0 {
			cfg.MaxTransferAttempts = f.Revenue.MaxTransferAttempts
		}
		applyRiskOverrides(&cfg.Risk, f)
	}

	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.AccountGRPCURL = envOrDefault("ACCOUNT_GRPC_URL", cfg.AccountGRPCURL)
	cfg.CatalogGRPCURL = envOrDefault("CATALOG_GRPC_URL", cfg.CatalogGRPCURL)
	cfg.ProfileGRPCURL = envOrDefault("PROFILE_GRPC_URL", cfg.ProfileGRPCURL)
	cfg.ProcessorBaseURL = envOrDefault("PROCESSOR_BASE_URL", cfg.ProcessorBaseURL)
	cfg.ProcessorAPIKey = envOrDefault("PROCESSOR_API_KEY", cfg.ProcessorAPIKey)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.TopicPurchases = envOrDefault("KAFKA_TOPIC_PURCHASES", cfg.TopicPurchases)
	cfg.TopicDomainEvents = envOrDefault("KAFKA_TOPIC_DOMAIN_EVENTS", cfg.TopicDomainEvents)
	cfg.TopicAnalytics = envOrDefault("KAFKA_TOPIC_ANALYTICS", cfg.TopicAnalytics)
	cfg.DLQTopic = envOrDefault("KAFKA_TOPIC_DLQ", cfg.DLQTopic)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MinPayoutMinorUnits = int64(envInt("MIN_PAYOUT_MINOR_UNITS", int(cfg.MinPayoutMinorUnits)))
	cfg.InstantCeilingMinorUnits = int64(envInt("INSTANT_CEILING_MINOR_UNITS", int(cfg.InstantCeilingMinorUnits)))
	cfg.BatchHourUTC = envInt("PAYOUT_BATCH_HOUR_UTC", cfg.BatchHourUTC)
	cfg.BatchSize = envInt("PAYOUT_BATCH_SIZE", cfg.BatchSize)
	cfg.BatchInterval = time.Duration(envInt("PAYOUT_BATCH_INTERVAL_SECONDS", int(cfg.BatchInterval.Seconds()))) * time.Second
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second

	return cfg, nil
}

func applyRiskOverrides(policy *domain.RiskPolicy, f configFile) {
	if f.Risk.HoldThreshold != nil {
		policy.HoldThreshold = *f.Risk.HoldThreshold
	}
	if f.Risk.NewAccountHoldDays != nil {
		policy.NewAccountHoldDays = *f.Risk.NewAccountHoldDays
	}
	if f.Risk.LargeAmountMinorUnits != nil {
		policy.LargeAmountMinorUnits = *f.Risk.LargeAmountMinorUnits
	}
	if f.Risk.VeryLargeMinorUnits != nil {
		policy.VeryLargeMinorUnits = *f.Risk.VeryLargeMinorUnits
	}
	if f.Risk.FailureHistoryWindow != nil {
		policy.FailureHistoryWindow = *f.Risk.FailureHistoryWindow
	}
	if f.Risk.DisputeWindowDays != nil {
		policy.DisputeWindowDays = *f.Risk.DisputeWindowDays
	}
	if f.Risk.DisputeSaturationCount != nil {
		policy.DisputeSaturationCount = *f.Risk.DisputeSaturationCount
	}
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	items := strings.Split(raw, ",")
	return trimNonEmpty(items)
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
