package postgres

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
	"gorm.io/gorm"
)

type ledgerRepository struct {
	db *gorm.DB
}

func (r *ledgerRepository) Append(ctx context.Context, entry domain.LedgerEntry) error {
	rec := toLedgerEntryModel(entry)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

// AppendPair writes both legs in one transaction so a crash between them can
// never leave a half-pair on the ledger.
func (r *ledgerRepository) AppendPair(ctx context.Context, debit, credit domain.LedgerEntry) error {
	debitRec := toLedgerEntryModel(debit)
	creditRec := toLedgerEntryModel(credit)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&debitRec).Error; err != nil {
			return err
		}
		return tx.Create(&creditRec).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ledgerRepository) GetByCorrelationID(ctx context.Context, correlationID string) ([]domain.LedgerEntry, error) {
	var rows []ledgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainLedgerEntry(row))
	}
	return out, nil
}

func (r *ledgerRepository) ListByAccount(ctx context.Context, query ports.TransactionQuery) ([]domain.LedgerEntry, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ledgerEntryModel{}).
		Where("account_id = ?", query.AccountID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []ledgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", query.AccountID).
		Order("created_at desc").
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainLedgerEntry(row))
	}
	return out, int(total), nil
}

func (r *ledgerRepository) AccountBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(CASE kind WHEN 'credit' THEN amount_minor_units ELSE -amount_minor_units END), 0)
		FROM ledger_entries
		WHERE account_id = ?`, accountID).Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *ledgerRepository) GlobalTotals(ctx context.Context) (int64, int64, error) {
	var totals struct {
		Debits  int64
		Credits int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE kind WHEN 'debit' THEN amount_minor_units ELSE 0 END), 0) AS debits,
			COALESCE(SUM(CASE kind WHEN 'credit' THEN amount_minor_units ELSE 0 END), 0) AS credits
		FROM ledger_entries`).Scan(&totals).Error
	if err != nil {
		return 0, 0, err
	}
	return totals.Debits, totals.Credits, nil
}
