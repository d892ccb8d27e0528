package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

// ConsumerWorker pulls purchase events off the broker and feeds them to the
// split applier. Events that repeatedly cannot be handled go to the DLQ
// rather than blocking the partition.
type ConsumerWorker struct {
	logger   *slog.Logger
	consumer ports.EventConsumer
	dlq      ports.DLQPublisher
	service  *application.Service
	interval time.Duration
	batch    int
}

func NewConsumerWorker(logger *slog.Logger, consumer ports.EventConsumer, dlq ports.DLQPublisher, service *application.Service, interval time.Duration) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ConsumerWorker{
		logger: logger, consumer: consumer, dlq: dlq, service: service, interval: interval, batch: 50,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ConsumerWorker) processOnce(ctx context.Context) error {
	for i := 0; i < w.batch; i++ {
		event, err := w.consumer.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if event == nil {
			return nil
		}
		w.handle(ctx, *event)
	}
	return nil
}

func (w *ConsumerWorker) handle(ctx context.Context, event contracts.EventEnvelope) {
	err := w.service.HandleDomainEvent(ctx, event)
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, domain.ErrUnsupportedEventType), errors.Is(err, domain.ErrUnsupportedEventClass):
		w.logger.WarnContext(ctx, "skipping unsupported event",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "handle",
			"outcome", "skipped",
			"event_type", event.EventType,
			"event_id", event.EventID,
		)
	default:
		now := time.Now().UTC()
		dlqErr := w.dlq.PublishDLQ(ctx, contracts.DLQRecord{
			OriginalEvent: event,
			ErrorSummary:  err.Error(),
			RetryCount:    1,
			FirstSeenAt:   now,
			LastErrorAt:   now,
			TraceID:       event.TraceID,
		})
		if dlqErr != nil {
			w.logger.ErrorContext(ctx, "dead letter publish failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "handle",
				"outcome", "failure",
				"event_id", event.EventID,
				"error", dlqErr,
			)
			return
		}
		w.logger.WarnContext(ctx, "event routed to dead letter queue",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "handle",
			"outcome", "dead_lettered",
			"event_type", event.EventType,
			"event_id", event.EventID,
			"error", err,
		)
	}
}
