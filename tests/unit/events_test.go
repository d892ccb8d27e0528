package unit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
)

func purchaseEvent(t *testing.T, eventID, purchaseID string, amount int64) contracts.EventEnvelope {
	t.Helper()
	data, err := json.Marshal(contracts.PurchaseCompletedPayload{
		PurchaseID:       purchaseID,
		EntityType:       string(domain.EntityTypeEvent),
		EntityID:         "evt_1",
		AmountMinorUnits: amount,
		Currency:         "USD",
		CompletedAt:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return contracts.EventEnvelope{
		EventID:          eventID,
		EventType:        domain.EventPurchaseCompleted,
		EventClass:       domain.CanonicalEventClassDomain,
		OccurredAt:       time.Now().UTC(),
		PartitionKeyPath: "data.purchase_id",
		PartitionKey:     purchaseID,
		SourceService:    "checkout",
		TraceID:          "trace-1",
		SchemaVersion:    "v1",
		Data:             data,
	}
}

func TestHandleDomainEventAppliesSplits(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.roles.Bind(domain.EntityTypeEvent, "evt_1", domain.RoleArtist, "acct-artist")
	f.roles.Bind(domain.EntityTypeEvent, "evt_1", domain.RoleHost, "acct-host")

	if err := f.svc.HandleDomainEvent(ctx, purchaseEvent(t, "msg-1", "pur_1", 100000)); err != nil {
		t.Fatalf("HandleDomainEvent error: %v", err)
	}

	balance, err := f.svc.GetAccountBalance(ctx, "acct-artist")
	if err != nil {
		t.Fatalf("GetAccountBalance error: %v", err)
	}
	if balance != 70000 {
		t.Fatalf("artist balance %d, expected 70000", balance)
	}
}

func TestHandleDomainEventDedup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.roles.Bind(domain.EntityTypeEvent, "evt_1", domain.RoleArtist, "acct-artist")
	f.roles.Bind(domain.EntityTypeEvent, "evt_1", domain.RoleHost, "acct-host")
	event := purchaseEvent(t, "msg-1", "pur_1", 100000)

	if err := f.svc.HandleDomainEvent(ctx, event); err != nil {
		t.Fatalf("first delivery error: %v", err)
	}
	if err := f.svc.HandleDomainEvent(ctx, event); err != nil {
		t.Fatalf("replayed delivery error: %v", err)
	}

	balance, err := f.svc.GetAccountBalance(ctx, "acct-artist")
	if err != nil {
		t.Fatalf("GetAccountBalance error: %v", err)
	}
	if balance != 70000 {
		t.Fatalf("replayed delivery doubled the artist balance: %d", balance)
	}
}

func TestHandleDomainEventRejectsUnsupportedType(t *testing.T) {
	f := newFixture()
	event := purchaseEvent(t, "msg-1", "pur_1", 100000)
	event.EventType = "checkout.cart_abandoned"

	err := f.svc.HandleDomainEvent(context.Background(), event)
	if !errors.Is(err, domain.ErrUnsupportedEventType) {
		t.Fatalf("expected ErrUnsupportedEventType, got %v", err)
	}
}

func TestHandleDomainEventValidatesPartitionKey(t *testing.T) {
	f := newFixture()
	event := purchaseEvent(t, "msg-1", "pur_1", 100000)
	event.PartitionKey = "pur_other"

	err := f.svc.HandleDomainEvent(context.Background(), event)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for mismatched partition key, got %v", err)
	}
}

func TestFlushOutboxPublishesDomainEvents(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.roles.Bind(domain.EntityTypeEvent, "evt_1", domain.RoleArtist, "acct-artist")
	f.roles.Bind(domain.EntityTypeEvent, "evt_1", domain.RoleHost, "acct-host")

	if err := f.svc.HandleDomainEvent(ctx, purchaseEvent(t, "msg-1", "pur_1", 100000)); err != nil {
		t.Fatalf("HandleDomainEvent error: %v", err)
	}
	if err := f.svc.FlushOutbox(ctx); err != nil {
		t.Fatalf("FlushOutbox error: %v", err)
	}

	var applied bool
	for _, event := range f.domainEvents.Events() {
		if event.EventType == domain.EventSplitApplied {
			applied = true
			if event.PartitionKey != "pur_1" {
				t.Fatalf("split_applied partitioned by %s, expected pur_1", event.PartitionKey)
			}
		}
	}
	if !applied {
		t.Fatalf("expected %s to be published", domain.EventSplitApplied)
	}

	pending, err := f.repos.Outbox.ListPending(ctx, 100)
	if err != nil {
		t.Fatalf("ListPending error: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected an empty outbox after flush, %d records remain", len(pending))
	}
}
