package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

type CreateEntryInput struct {
	AccountID        string
	AmountMinorUnits int64
	Currency         string
	Kind             domain.EntryKind
	EventSource      domain.EventSource
	ReferenceID      string
	CorrelationID    string
	Description      string
	Metadata         map[string]string
}

// CreateEntry appends a single ledger entry. A fresh correlation ID is
// generated when none is given; callers recording one half of a pair must
// pass the shared ID explicitly.
func (s *Service) CreateEntry(ctx context.Context, input CreateEntryInput) (domain.LedgerEntry, error) {
	if err := domain.ValidateEntryInput(input.AccountID, input.AmountMinorUnits, input.Kind, input.EventSource); err != nil {
		return domain.LedgerEntry{}, err
	}
	if input.Currency == "" {
		input.Currency = s.cfg.DefaultCurrency
	}
	if strings.TrimSpace(input.CorrelationID) == "" {
		input.CorrelationID = uuid.NewString()
	}
	entry := domain.LedgerEntry{
		EntryID:          uuid.NewString(),
		AccountID:        input.AccountID,
		AmountMinorUnits: input.AmountMinorUnits,
		Currency:         input.Currency,
		Kind:             input.Kind,
		EventSource:      input.EventSource,
		ReferenceID:      input.ReferenceID,
		CorrelationID:    input.CorrelationID,
		Description:      input.Description,
		Metadata:         input.Metadata,
		CreatedAt:        s.nowFn(),
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry, nil
}

type PairedEntriesInput struct {
	DebitAccountID   string
	CreditAccountID  string
	AmountMinorUnits int64
	Currency         string
	EventSource      domain.EventSource
	ReferenceID      string
	Description      string
	Metadata         map[string]string
}

// CreatePairedEntries writes the debit and its matching credit atomically and
// returns the shared correlation ID. The repository guarantees both entries
// exist or neither does.
func (s *Service) CreatePairedEntries(ctx context.Context, input PairedEntriesInput) (string, error) {
	if err := domain.ValidatePairInput(input.DebitAccountID, input.CreditAccountID, input.AmountMinorUnits, input.EventSource); err != nil {
		return "", err
	}
	if input.Currency == "" {
		input.Currency = s.cfg.DefaultCurrency
	}
	correlationID := uuid.NewString()
	now := s.nowFn()
	debit := domain.LedgerEntry{
		EntryID:          uuid.NewString(),
		AccountID:        input.DebitAccountID,
		AmountMinorUnits: input.AmountMinorUnits,
		Currency:         input.Currency,
		Kind:             domain.EntryKindDebit,
		EventSource:      input.EventSource,
		ReferenceID:      input.ReferenceID,
		CorrelationID:    correlationID,
		Description:      input.Description,
		Metadata:         input.Metadata,
		CreatedAt:        now,
	}
	credit := debit
	credit.EntryID = uuid.NewString()
	credit.AccountID = input.CreditAccountID
	credit.Kind = domain.EntryKindCredit

	if err := s.ledger.AppendPair(ctx, debit, credit); err != nil {
		s.logger.ErrorContext(ctx, "paired ledger write failed",
			"operation", "create_paired_entries",
			"outcome", "failure",
			"correlation_id", correlationID,
			"debit_account", input.DebitAccountID,
			"credit_account", input.CreditAccountID,
			"error", err,
		)
		return "", fmt.Errorf("%w: %v", domain.ErrLedgerConsistency, err)
	}
	return correlationID, nil
}

// GetAccountBalance derives the balance as credits minus debits. The value is
// never stored; deriving it on every read avoids the read-modify-write race a
// stored balance column would introduce.
func (s *Service) GetAccountBalance(ctx context.Context, accountID string) (int64, error) {
	if strings.TrimSpace(accountID) == "" {
		return 0, fmt.Errorf("%w: account id required", domain.ErrValidation)
	}
	return s.ledger.AccountBalance(ctx, accountID)
}

func (s *Service) GetPairedEntries(ctx context.Context, correlationID string) ([]domain.LedgerEntry, error) {
	if strings.TrimSpace(correlationID) == "" {
		return nil, fmt.Errorf("%w: correlation id required", domain.ErrValidation)
	}
	entries, err := s.ledger.GetByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrNotFound
	}
	return entries, nil
}

func (s *Service) GetAccountTransactions(ctx context.Context, query ports.TransactionQuery) (TransactionListOutput, error) {
	if strings.TrimSpace(query.AccountID) == "" {
		return TransactionListOutput{}, fmt.Errorf("%w: account id required", domain.ErrValidation)
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	items, total, err := s.ledger.ListByAccount(ctx, query)
	if err != nil {
		return TransactionListOutput{}, err
	}
	return TransactionListOutput{
		Items: items,
		Pagination: contracts.Pagination{
			Limit:  query.Limit,
			Offset: query.Offset,
			Total:  total,
		},
	}, nil
}

// ValidateGlobalBalance runs the standalone zero-sum consistency check. A
// non-zero imbalance is emitted as an ops event so operators get alerted; it
// is never silently auto-corrected.
func (s *Service) ValidateGlobalBalance(ctx context.Context) (domain.BalanceReport, error) {
	debits, credits, err := s.ledger.GlobalTotals(ctx)
	if err != nil {
		return domain.BalanceReport{}, err
	}
	imbalance := debits - credits
	if imbalance < 0 {
		imbalance = -imbalance
	}
	report := domain.BalanceReport{
		IsBalanced:     imbalance == 0,
		TotalDebits:    debits,
		TotalCredits:   credits,
		TotalImbalance: imbalance,
		CheckedAt:      s.nowFn(),
	}
	if !report.IsBalanced {
		s.logger.ErrorContext(ctx, "global ledger imbalance detected",
			"operation", "validate_global_balance",
			"outcome", "failure",
			"total_debits", debits,
			"total_credits", credits,
			"imbalance", imbalance,
		)
		s.publishImbalanceOps(ctx, report)
	}
	return report, nil
}

func (s *Service) publishImbalanceOps(ctx context.Context, report domain.BalanceReport) {
	s.auditEvent(ctx, domain.EventLedgerImbalance, domain.CanonicalEventClassOps, "data.checked_at", report.CheckedAt.Format(time.RFC3339), contracts.LedgerImbalancePayload{
		TotalDebits:    report.TotalDebits,
		TotalCredits:   report.TotalCredits,
		TotalImbalance: report.TotalImbalance,
		CheckedAt:      report.CheckedAt.Format(time.RFC3339),
	})
}
