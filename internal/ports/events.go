package ports

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
)

type DomainPublisher interface {
	PublishDomain(ctx context.Context, event contracts.EventEnvelope) error
}

type AnalyticsPublisher interface {
	PublishAnalytics(ctx context.Context, event contracts.EventEnvelope) error
}

type DLQPublisher interface {
	PublishDLQ(ctx context.Context, record contracts.DLQRecord) error
}

type EventConsumer interface {
	Receive(ctx context.Context) (*contracts.EventEnvelope, error)
}
