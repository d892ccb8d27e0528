package application

import (
	"context"
	"fmt"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
)

// ScorePayoutRisk gathers the scorer's signals and applies the configured
// policy. Risk only affects later batch selection; it never blocks payout
// creation.
func (s *Service) ScorePayoutRisk(ctx context.Context, accountID string, amountMinorUnits int64) (float64, error) {
	now := s.nowFn()
	signals := domain.RiskSignals{AmountMinorUnits: amountMinorUnits}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("account lookup: %w", err)
	}
	signals.AccountAgeDays = int(now.Sub(account.CreatedAt).Hours() / 24)

	total, failed, err := s.payouts.RecentOutcomes(ctx, accountID, s.cfg.Risk.FailureHistoryWindow)
	if err != nil {
		return 0, fmt.Errorf("payout history: %w", err)
	}
	signals.RecentPayouts = total
	signals.RecentFailures = failed

	if s.disputes != nil {
		since := now.Add(-time.Duration(s.cfg.Risk.DisputeWindowDays) * 24 * time.Hour)
		count, err := s.disputes.CountSince(ctx, since)
		if err != nil {
			// Dispute stats are advisory; score without them rather
			// than blocking the payout path.
			s.logger.WarnContext(ctx, "dispute stats unavailable",
				"operation", "score_payout_risk",
				"account_id", accountID,
				"error", err,
			)
		} else {
			signals.RecentDisputes = count
		}
	}

	return domain.ScoreSignals(s.cfg.Risk, signals), nil
}

// RecordDispute feeds the platform-wide trailing dispute window consumed by
// the risk scorer.
func (s *Service) RecordDispute(ctx context.Context, actor Actor) error {
	if actor.SubjectID == "" {
		return domain.ErrUnauthorized
	}
	if s.disputes == nil {
		return nil
	}
	return s.disputes.RecordDispute(ctx, s.nowFn())
}
