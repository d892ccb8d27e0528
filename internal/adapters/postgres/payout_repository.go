package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
	"gorm.io/gorm"
)

type payoutRepository struct {
	db *gorm.DB
}

func (r *payoutRepository) Create(ctx context.Context, payout domain.Payout) error {
	rec := toPayoutModel(payout)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *payoutRepository) GetByID(ctx context.Context, payoutID string) (domain.Payout, error) {
	var rec payoutModel
	if err := r.db.WithContext(ctx).Where("payout_id = ?", payoutID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payout{}, domain.ErrNotFound
		}
		return domain.Payout{}, err
	}
	return toDomainPayout(rec), nil
}

func (r *payoutRepository) List(ctx context.Context, query ports.PayoutQuery) ([]domain.Payout, int, error) {
	scope := r.db.WithContext(ctx).Model(&payoutModel{})
	if query.AccountID != "" {
		scope = scope.Where("account_id = ?", query.AccountID)
	}
	if query.Status != "" {
		scope = scope.Where("status = ?", string(query.Status))
	}
	var total int64
	if err := scope.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	var rows []payoutModel
	if err := scope.Order("created_at desc").Limit(limit).Offset(query.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Payout, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainPayout(row))
	}
	return out, int(total), nil
}

func (r *payoutRepository) ListDue(ctx context.Context, now time.Time, maxRisk float64, limit int) ([]domain.Payout, error) {
	var rows []payoutModel
	scope := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ? AND risk_score < ?", string(domain.PayoutStatusPending), now, maxRisk).
		Order("scheduled_for asc")
	if limit > 0 {
		scope = scope.Limit(limit)
	}
	if err := scope.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Payout, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainPayout(row))
	}
	return out, nil
}

// CompareAndSwap updates the row only when it still carries the expected
// status. RowsAffected distinguishes a lost race from a missing payout.
func (r *payoutRepository) CompareAndSwap(ctx context.Context, payout domain.Payout, expected domain.PayoutStatus) error {
	rec := toPayoutModel(payout)
	res := r.db.WithContext(ctx).Model(&payoutModel{}).
		Where("payout_id = ? AND status = ?", payout.PayoutID, string(expected)).
		Updates(map[string]any{
			"status":               rec.Status,
			"risk_score":           rec.RiskScore,
			"external_transfer_id": rec.ExternalTransferID,
			"scheduled_for":        rec.ScheduledFor,
			"initiated_at":         rec.InitiatedAt,
			"completed_at":         rec.CompletedAt,
			"failure_code":         rec.FailureCode,
			"failure_message":      rec.FailureMessage,
			"metadata":             rec.Metadata,
			"updated_at":           rec.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&payoutModel{}).
			Where("payout_id = ?", payout.PayoutID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *payoutRepository) RecentOutcomes(ctx context.Context, accountID string, window int) (int, int, error) {
	if window <= 0 {
		window = 20
	}
	var outcomes struct {
		Total  int64
		Failed int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE status WHEN 'failed' THEN 1 ELSE 0 END), 0) AS failed
		FROM (
			SELECT status FROM payouts
			WHERE account_id = ? AND status IN ('completed', 'failed')
			ORDER BY created_at DESC
			LIMIT ?
		) recent`, accountID, window).Scan(&outcomes).Error
	if err != nil {
		return 0, 0, err
	}
	return int(outcomes.Total), int(outcomes.Failed), nil
}
