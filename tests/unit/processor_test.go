package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

// queueDuePayout funds the account and queues a payout scheduled in the past
// so the next batch trigger selects it.
func queueDuePayout(t *testing.T, f *fixture, accountID string, amount int64) domain.Payout {
	t.Helper()
	f.creditAccount(t, accountID, amount)
	payout, err := f.svc.QueuePayout(context.Background(), userActor(accountID), application.QueuePayoutInput{
		AccountID:        accountID,
		AmountMinorUnits: amount,
		ScheduledFor:     time.Now().UTC().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("QueuePayout %s: %v", accountID, err)
	}
	return payout
}

func TestProcessDuePayoutsCompletesDue(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	payout := queueDuePayout(t, f, "acct-1", 5000)

	// A second payout scheduled for the future must not be picked up.
	f.creditAccount(t, "acct-2", 5000)
	_, err := f.svc.QueuePayout(ctx, userActor("acct-2"), application.QueuePayoutInput{
		AccountID:        "acct-2",
		AmountMinorUnits: 5000,
		ScheduledFor:     time.Now().UTC().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("QueuePayout future error: %v", err)
	}

	result, err := f.svc.ProcessDuePayouts(ctx)
	if err != nil {
		t.Fatalf("ProcessDuePayouts error: %v", err)
	}
	if result.Selected != 1 || result.Completed != 1 {
		t.Fatalf("batch selected=%d completed=%d, expected 1/1", result.Selected, result.Completed)
	}

	processed, err := f.svc.GetPayout(ctx, adminActor(), payout.PayoutID)
	if err != nil {
		t.Fatalf("GetPayout error: %v", err)
	}
	if processed.Status != domain.PayoutStatusCompleted {
		t.Fatalf("status %s, expected completed", processed.Status)
	}
	if processed.ExternalTransferID == "" {
		t.Fatalf("completed payout missing the processor transfer id")
	}
	if processed.CompletedAt == nil {
		t.Fatalf("completed payout missing completion time")
	}

	transfers := f.transfers.Transfers()
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer call, got %d", len(transfers))
	}
	if transfers[0].IdempotencyKey != "payout:"+payout.PayoutID {
		t.Fatalf("transfer idempotency key %s, expected payout-scoped key", transfers[0].IdempotencyKey)
	}
}

func TestProcessOneRetriesTransientFailure(t *testing.T) {
	f := newFixture()
	payout := queueDuePayout(t, f, "acct-1", 5000)
	f.transfers.FailNext(&domain.TransferError{Code: "processor_unavailable", Message: "503", Retryable: true})

	if err := f.svc.ProcessOne(context.Background(), payout.PayoutID); err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if f.transfers.Calls() != 2 {
		t.Fatalf("expected a retry after the transient failure, got %d calls", f.transfers.Calls())
	}

	processed, err := f.svc.GetPayout(context.Background(), adminActor(), payout.PayoutID)
	if err != nil {
		t.Fatalf("GetPayout error: %v", err)
	}
	if processed.Status != domain.PayoutStatusCompleted {
		t.Fatalf("status %s, expected completed after retry", processed.Status)
	}
}

func TestProcessOnePermanentFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	payout := queueDuePayout(t, f, "acct-1", 5000)
	f.transfers.FailNext(&domain.TransferError{Code: "transfer_rejected", Message: "destination closed", Retryable: false})

	err := f.svc.ProcessOne(ctx, payout.PayoutID)
	if err == nil {
		t.Fatalf("expected an error for a rejected transfer")
	}
	if f.transfers.Calls() != 1 {
		t.Fatalf("permanent failures must not be retried, got %d calls", f.transfers.Calls())
	}

	failed, err := f.svc.GetPayout(ctx, adminActor(), payout.PayoutID)
	if err != nil {
		t.Fatalf("GetPayout error: %v", err)
	}
	if failed.Status != domain.PayoutStatusFailed {
		t.Fatalf("status %s, expected failed", failed.Status)
	}
	if failed.FailureCode != "transfer_rejected" {
		t.Fatalf("failure code %s, expected transfer_rejected", failed.FailureCode)
	}

	pending, err := f.repos.Outbox.ListPending(ctx, 100)
	if err != nil {
		t.Fatalf("ListPending error: %v", err)
	}
	var found bool
	for _, record := range pending {
		if record.Envelope.EventType == domain.EventPayoutFailed {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s in the outbox", domain.EventPayoutFailed)
	}
}

func TestProcessOneRetryExhaustion(t *testing.T) {
	f := newFixture()
	payout := queueDuePayout(t, f, "acct-1", 5000)
	transient := &domain.TransferError{Code: "processor_unavailable", Message: "503", Retryable: true}
	f.transfers.FailNext(transient, transient, transient)

	if err := f.svc.ProcessOne(context.Background(), payout.PayoutID); err == nil {
		t.Fatalf("expected failure once attempts are exhausted")
	}
	if f.transfers.Calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.transfers.Calls())
	}

	failed, err := f.svc.GetPayout(context.Background(), adminActor(), payout.PayoutID)
	if err != nil {
		t.Fatalf("GetPayout error: %v", err)
	}
	if failed.Status != domain.PayoutStatusFailed {
		t.Fatalf("status %s, expected failed", failed.Status)
	}
}

func TestProcessOneDestinationMissing(t *testing.T) {
	f := newFixture()
	payout := queueDuePayout(t, f, "acct-1", 5000)
	f.destinations.MarkMissing("acct-1")

	if err := f.svc.ProcessOne(context.Background(), payout.PayoutID); err == nil {
		t.Fatalf("expected failure for missing destination")
	}
	if f.transfers.Calls() != 0 {
		t.Fatalf("no transfer should be attempted without a destination")
	}

	failed, err := f.svc.GetPayout(context.Background(), adminActor(), payout.PayoutID)
	if err != nil {
		t.Fatalf("GetPayout error: %v", err)
	}
	if failed.FailureCode != "destination_unavailable" {
		t.Fatalf("failure code %s, expected destination_unavailable", failed.FailureCode)
	}
}

func TestProcessOneRequiresPendingStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	payout := queueDuePayout(t, f, "acct-1", 5000)

	if _, err := f.svc.CancelPayout(ctx, userActor("acct-1"), payout.PayoutID); err != nil {
		t.Fatalf("CancelPayout error: %v", err)
	}
	err := f.svc.ProcessOne(ctx, payout.PayoutID)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict processing a cancelled payout, got %v", err)
	}
}

func TestHeldPayoutExcludedFromBatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	// A week-old account moving a large amount lands over the hold
	// threshold; the payout is created pending but never selected.
	f.accounts.Register(ports.AccountProfile{
		AccountID: "acct-new",
		CreatedAt: time.Now().UTC().AddDate(0, 0, -7),
	})
	f.creditAccount(t, "acct-new", 150000)

	payout, err := f.svc.QueuePayout(ctx, userActor("acct-new"), application.QueuePayoutInput{
		AccountID:        "acct-new",
		AmountMinorUnits: 150000,
		ScheduledFor:     time.Now().UTC().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("QueuePayout error: %v", err)
	}
	if payout.RiskScore < 0.7 {
		t.Fatalf("risk score %.2f, expected at or above the hold threshold", payout.RiskScore)
	}

	result, err := f.svc.ProcessDuePayouts(ctx)
	if err != nil {
		t.Fatalf("ProcessDuePayouts error: %v", err)
	}
	if result.Selected != 0 {
		t.Fatalf("held payout was selected for processing")
	}
	if f.transfers.Calls() != 0 {
		t.Fatalf("no transfer should run for a held payout")
	}
}
