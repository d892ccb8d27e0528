package unit

import (
	"context"
	"errors"
	"testing"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

func TestCreatePairedEntriesBalances(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	correlationID, err := f.svc.CreatePairedEntries(ctx, application.PairedEntriesInput{
		DebitAccountID:   "sales-clearing",
		CreditAccountID:  "acct-artist",
		AmountMinorUnits: 5000,
		EventSource:      domain.EventSourceCharge,
		ReferenceID:      "pur_1",
	})
	if err != nil {
		t.Fatalf("CreatePairedEntries error: %v", err)
	}

	entries, err := f.svc.GetPairedEntries(ctx, correlationID)
	if err != nil {
		t.Fatalf("GetPairedEntries error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind == entries[1].Kind {
		t.Fatalf("expected one debit and one credit, got %s and %s", entries[0].Kind, entries[1].Kind)
	}
	for _, entry := range entries {
		if entry.CorrelationID != correlationID {
			t.Fatalf("entry %s carries correlation %s, expected %s", entry.EntryID, entry.CorrelationID, correlationID)
		}
		if entry.AmountMinorUnits != 5000 {
			t.Fatalf("entry amount %d, expected 5000", entry.AmountMinorUnits)
		}
	}

	balance, err := f.svc.GetAccountBalance(ctx, "acct-artist")
	if err != nil {
		t.Fatalf("GetAccountBalance error: %v", err)
	}
	if balance != 5000 {
		t.Fatalf("credited balance %d, expected 5000", balance)
	}

	debited, err := f.svc.GetAccountBalance(ctx, "sales-clearing")
	if err != nil {
		t.Fatalf("GetAccountBalance error: %v", err)
	}
	if debited != -5000 {
		t.Fatalf("debited balance %d, expected -5000", debited)
	}

	report, err := f.svc.ValidateGlobalBalance(ctx)
	if err != nil {
		t.Fatalf("ValidateGlobalBalance error: %v", err)
	}
	if !report.IsBalanced {
		t.Fatalf("ledger of pairs should be balanced, imbalance %d", report.TotalImbalance)
	}
}

func TestCreateEntryRejectsInvalidInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.CreateEntry(ctx, application.CreateEntryInput{
		AccountID:        "acct-1",
		AmountMinorUnits: 0,
		Kind:             domain.EntryKindCredit,
		EventSource:      domain.EventSourceCharge,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for zero amount, got %v", err)
	}

	_, err = f.svc.CreateEntry(ctx, application.CreateEntryInput{
		AccountID:        "acct-1",
		AmountMinorUnits: 100,
		Kind:             "transfer",
		EventSource:      domain.EventSourceCharge,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown kind, got %v", err)
	}

	_, err = f.svc.CreateEntry(ctx, application.CreateEntryInput{
		AccountID:        "acct-1",
		AmountMinorUnits: 100,
		Kind:             domain.EntryKindDebit,
		EventSource:      "lottery",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown event source, got %v", err)
	}
}

func TestValidateGlobalBalanceDetectsImbalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.CreateEntry(ctx, application.CreateEntryInput{
		AccountID:        "acct-1",
		AmountMinorUnits: 700,
		Kind:             domain.EntryKindCredit,
		EventSource:      domain.EventSourceAdjustment,
	})
	if err != nil {
		t.Fatalf("CreateEntry error: %v", err)
	}

	report, err := f.svc.ValidateGlobalBalance(ctx)
	if err != nil {
		t.Fatalf("ValidateGlobalBalance error: %v", err)
	}
	if report.IsBalanced {
		t.Fatalf("unpaired credit should trip the consistency check")
	}
	if report.TotalImbalance != 700 {
		t.Fatalf("imbalance %d, expected 700", report.TotalImbalance)
	}

	var found bool
	for _, event := range f.analytics.Events() {
		if event.EventType == domain.EventLedgerImbalance {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s ops event", domain.EventLedgerImbalance)
	}
}

func TestGetAccountTransactionsPagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.creditAccount(t, "acct-flow", 1000)
	}

	out, err := f.svc.GetAccountTransactions(ctx, ports.TransactionQuery{AccountID: "acct-flow", Limit: 2})
	if err != nil {
		t.Fatalf("GetAccountTransactions error: %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("expected page of 2, got %d", len(out.Items))
	}
	if out.Pagination.Total != 5 {
		t.Fatalf("expected total 5, got %d", out.Pagination.Total)
	}

	rest, err := f.svc.GetAccountTransactions(ctx, ports.TransactionQuery{AccountID: "acct-flow", Limit: 10, Offset: 2})
	if err != nil {
		t.Fatalf("GetAccountTransactions error: %v", err)
	}
	if len(rest.Items) != 3 {
		t.Fatalf("expected remaining 3, got %d", len(rest.Items))
	}
}

func TestGetPairedEntriesUnknownCorrelation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GetPairedEntries(context.Background(), "no-such-correlation")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
