package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

// HandleDomainEvent consumes a purchase completion from the checkout domain
// and applies splits for it. Replayed deliveries are absorbed by the event
// dedup window, and ApplySplits itself dedups on the purchase ID.
func (s *Service) HandleDomainEvent(ctx context.Context, event contracts.EventEnvelope) error {
	if event.EventType != domain.EventPurchaseCompleted {
		return domain.ErrUnsupportedEventType
	}
	if event.EventClass != "" && event.EventClass != domain.CanonicalEventClassDomain {
		return domain.ErrUnsupportedEventClass
	}
	if err := validateDomainEventEnvelope(event, domain.EventPurchaseCompleted, "data.purchase_id"); err != nil {
		return err
	}

	now := s.nowFn()
	dup, err := s.eventDedup.IsDuplicate(ctx, event.EventID, now)
	if err != nil {
		return err
	}
	if dup {
		return nil
	}

	var payload contracts.PurchaseCompletedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("decode purchase_completed payload: %w", err)
	}

	_, err = s.ApplySplits(ctx, Actor{
		SubjectID: "checkout",
		Role:      "system",
		RequestID: event.TraceID,
	}, ApplySplitsInput{
		PurchaseID:       payload.PurchaseID,
		AmountMinorUnits: payload.AmountMinorUnits,
		Currency:         payload.Currency,
		EntityType:       domain.EntityType(payload.EntityType),
		EntityID:         payload.EntityID,
	})
	if err != nil {
		return err
	}
	return s.eventDedup.MarkProcessed(ctx, event.EventID, event.EventType, now.Add(s.cfg.EventDedupTTL))
}

// FlushOutbox publishes pending domain-class outbox records.
func (s *Service) FlushOutbox(ctx context.Context) error {
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return err
	}
	for _, record := range pending {
		if record.EventClass != domain.CanonicalEventClassDomain {
			continue
		}
		if err := s.domainEvents.PublishDomain(ctx, record.Envelope); err != nil {
			return err
		}
		if err := s.outbox.MarkSent(ctx, record.RecordID, s.nowFn()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) newEnvelope(eventType, eventClass, partitionKeyPath, partitionKey string, occurredAt time.Time, data []byte) contracts.EventEnvelope {
	return contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       eventClass,
		OccurredAt:       occurredAt,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          uuid.NewString(),
		SchemaVersion:    "v1",
		Data:             data,
	}
}

func (s *Service) enqueueDomain(ctx context.Context, eventType, partitionKeyPath, partitionKey string, occurredAt time.Time, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: domain.CanonicalEventClassDomain,
		Envelope:   s.newEnvelope(eventType, domain.CanonicalEventClassDomain, partitionKeyPath, partitionKey, occurredAt, data),
		CreatedAt:  s.nowFn(),
	})
}

func (s *Service) enqueueSplitApplied(ctx context.Context, result ApplySplitsResult, entityType domain.EntityType) error {
	shares := make([]contracts.SplitSharePayload, 0, len(result.Shares))
	for _, share := range result.Shares {
		shares = append(shares, contracts.SplitSharePayload{
			RecipientID:      share.RecipientID,
			Role:             string(share.Role),
			AmountMinorUnits: share.AmountMinorUnits,
		})
	}
	at := s.nowFn()
	return s.enqueueDomain(ctx, domain.EventSplitApplied, "data.purchase_id", result.PurchaseID, at, contracts.SplitAppliedPayload{
		PurchaseID:       result.PurchaseID,
		EntityType:       string(entityType),
		AmountMinorUnits: result.AmountMinorUnits,
		Shares:           shares,
		AppliedAt:        at.Format(time.RFC3339),
	})
}

func (s *Service) enqueuePayoutCompleted(ctx context.Context, payout domain.Payout, at time.Time) error {
	return s.enqueueDomain(ctx, domain.EventPayoutCompleted, "data.payout_id", payout.PayoutID, at, contracts.PayoutCompletedPayload{
		PayoutID:           payout.PayoutID,
		AccountID:          payout.AccountID,
		AmountMinorUnits:   payout.AmountMinorUnits,
		PayoutType:         string(payout.PayoutType),
		ExternalTransferID: payout.ExternalTransferID,
		CompletedAt:        at.Format(time.RFC3339),
	})
}

func (s *Service) enqueuePayoutFailed(ctx context.Context, payout domain.Payout, at time.Time) error {
	return s.enqueueDomain(ctx, domain.EventPayoutFailed, "data.payout_id", payout.PayoutID, at, contracts.PayoutFailedPayload{
		PayoutID:         payout.PayoutID,
		AccountID:        payout.AccountID,
		AmountMinorUnits: payout.AmountMinorUnits,
		PayoutType:       string(payout.PayoutType),
		FailureCode:      payout.FailureCode,
		FailureMessage:   payout.FailureMessage,
		FailedAt:         at.Format(time.RFC3339),
	})
}

func (s *Service) enqueuePayoutCancelled(ctx context.Context, payout domain.Payout, at time.Time) error {
	return s.enqueueDomain(ctx, domain.EventPayoutCancelled, "data.payout_id", payout.PayoutID, at, contracts.PayoutCancelledPayload{
		PayoutID:         payout.PayoutID,
		AccountID:        payout.AccountID,
		AmountMinorUnits: payout.AmountMinorUnits,
		CancelledAt:      at.Format(time.RFC3339),
	})
}

func (s *Service) publishPayoutProcessing(ctx context.Context, payout domain.Payout) {
	s.auditEvent(ctx, domain.EventPayoutProcessing, domain.CanonicalEventClassAnalyticsOnly, "data.payout_id", payout.PayoutID, contracts.PayoutProcessingPayload{
		PayoutID:         payout.PayoutID,
		AccountID:        payout.AccountID,
		AmountMinorUnits: payout.AmountMinorUnits,
		PayoutType:       string(payout.PayoutType),
		RiskScore:        payout.RiskScore,
		InitiatedAt:      payout.InitiatedAt.Format(time.RFC3339),
	})
}

// auditEvent publishes to the audit/analytics stream fire-and-forget. Audit
// failures must never abort the primary operation.
func (s *Service) auditEvent(ctx context.Context, eventType, eventClass, partitionKeyPath, partitionKey string, payload any) {
	if s.analytics == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WarnContext(ctx, "audit payload encode failed", "event_type", eventType, "error", err)
		return
	}
	envelope := s.newEnvelope(eventType, eventClass, partitionKeyPath, partitionKey, s.nowFn(), data)
	if err := s.analytics.PublishAnalytics(ctx, envelope); err != nil {
		s.logger.WarnContext(ctx, "audit publish failed", "event_type", eventType, "error", err)
	}
}

func validateDomainEventEnvelope(event contracts.EventEnvelope, expectedEventType, expectedPartitionPath string) error {
	if strings.TrimSpace(event.EventID) == "" {
		return fmt.Errorf("%w: missing event_id", domain.ErrValidation)
	}
	if event.EventType != expectedEventType {
		return fmt.Errorf("%w: unsupported event_type %s", domain.ErrValidation, event.EventType)
	}
	if event.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing occurred_at", domain.ErrValidation)
	}
	if strings.TrimSpace(event.SourceService) == "" {
		return fmt.Errorf("%w: missing source_service", domain.ErrValidation)
	}
	if strings.TrimSpace(event.TraceID) == "" {
		return fmt.Errorf("%w: missing trace_id", domain.ErrValidation)
	}
	if strings.TrimSpace(event.SchemaVersion) == "" {
		return fmt.Errorf("%w: missing schema_version", domain.ErrValidation)
	}
	if len(event.Data) == 0 {
		return fmt.Errorf("%w: missing data payload", domain.ErrValidation)
	}
	if event.PartitionKeyPath != expectedPartitionPath {
		return fmt.Errorf("%w: expected partition_key_path %s", domain.ErrValidation, expectedPartitionPath)
	}
	field := strings.TrimPrefix(event.PartitionKeyPath, "data.")
	var payload map[string]interface{}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("%w: invalid data payload", domain.ErrValidation)
	}
	value, ok := payload[field]
	if !ok {
		return fmt.Errorf("%w: partition key field %s missing from payload", domain.ErrValidation, field)
	}
	if fmt.Sprint(value) != event.PartitionKey {
		return fmt.Errorf("%w: partition key invariant failed", domain.ErrValidation)
	}
	return nil
}

func hashPayload(value interface{}) string {
	blob, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
