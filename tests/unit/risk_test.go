package unit

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
)

func scoreNear(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestScoreSignalsAdditiveModel(t *testing.T) {
	policy := domain.DefaultRiskPolicy()

	// Mature account, modest amount, clean history: only the first-payout
	// factor applies.
	got := domain.ScoreSignals(policy, domain.RiskSignals{
		AccountAgeDays:   365,
		AmountMinorUnits: 5000,
	})
	if !scoreNear(got, 0.1) {
		t.Fatalf("baseline score %.2f, expected 0.10", got)
	}

	// New account plus a very large amount stacks three factors.
	got = domain.ScoreSignals(policy, domain.RiskSignals{
		AccountAgeDays:   3,
		AmountMinorUnits: 600000,
	})
	if !scoreNear(got, 1.0) {
		t.Fatalf("stacked score %.2f, expected clamp at 1.00", got)
	}

	// Failure rate scales its factor linearly.
	got = domain.ScoreSignals(policy, domain.RiskSignals{
		AccountAgeDays:   365,
		AmountMinorUnits: 5000,
		RecentPayouts:    10,
		RecentFailures:   5,
	})
	if !scoreNear(got, 0.15) {
		t.Fatalf("failure-rate score %.2f, expected 0.15", got)
	}

	// Dispute pressure saturates at the configured count.
	got = domain.ScoreSignals(policy, domain.RiskSignals{
		AccountAgeDays:   365,
		AmountMinorUnits: 5000,
		RecentPayouts:    10,
		RecentDisputes:   50,
	})
	if !scoreNear(got, 0.3) {
		t.Fatalf("dispute score %.2f, expected 0.30", got)
	}
}

func TestHeldThreshold(t *testing.T) {
	policy := domain.DefaultRiskPolicy()
	if policy.Held(0.69) {
		t.Fatalf("0.69 should not be held")
	}
	if !policy.Held(0.7) {
		t.Fatalf("0.70 should be held")
	}
}

func TestClampScore(t *testing.T) {
	if got := domain.ClampScore(-0.2); got != 0 {
		t.Fatalf("negative clamp got %.2f", got)
	}
	if got := domain.ClampScore(1.7); got != 1 {
		t.Fatalf("overflow clamp got %.2f", got)
	}
}

func TestScorePayoutRiskUsesOutcomeHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	now := time.Now().UTC()
	for i, status := range []domain.PayoutStatus{
		domain.PayoutStatusCompleted,
		domain.PayoutStatusCompleted,
		domain.PayoutStatusCompleted,
		domain.PayoutStatusFailed,
	} {
		err := f.repos.Payouts.Create(ctx, domain.Payout{
			PayoutID:         "payout-hist-" + string(rune('a'+i)),
			AccountID:        "acct-vet",
			AmountMinorUnits: 5000,
			Currency:         "USD",
			Status:           status,
			PayoutType:       domain.PayoutTypeScheduled,
			ScheduledFor:     now,
			CreatedAt:        now.Add(-time.Duration(i) * time.Hour),
			UpdatedAt:        now,
		})
		if err != nil {
			t.Fatalf("seed payout error: %v", err)
		}
	}

	// 1 failure in 4 recent payouts: 0.25 * 0.3 = 0.075.
	score, err := f.svc.ScorePayoutRisk(ctx, "acct-vet", 5000)
	if err != nil {
		t.Fatalf("ScorePayoutRisk error: %v", err)
	}
	if !scoreNear(score, 0.075) {
		t.Fatalf("score %.3f, expected 0.075", score)
	}
}

func TestScorePayoutRiskCountsDisputes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := f.svc.RecordDispute(ctx, adminActor()); err != nil {
			t.Fatalf("RecordDispute error: %v", err)
		}
	}

	// First payout 0.1 plus half-saturated disputes 0.15.
	score, err := f.svc.ScorePayoutRisk(ctx, "acct-1", 5000)
	if err != nil {
		t.Fatalf("ScorePayoutRisk error: %v", err)
	}
	if !scoreNear(score, 0.25) {
		t.Fatalf("score %.2f, expected 0.25", score)
	}
}

func TestRecordDisputeRequiresActor(t *testing.T) {
	f := newFixture()
	err := f.svc.RecordDispute(context.Background(), application.Actor{})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestQueuePayoutRecordsRiskScore(t *testing.T) {
	f := newFixture()
	f.creditAccount(t, "acct-1", 10000)

	payout, err := f.svc.QueuePayout(context.Background(), userActor("acct-1"), application.QueuePayoutInput{
		AccountID:        "acct-1",
		AmountMinorUnits: 5000,
	})
	if err != nil {
		t.Fatalf("QueuePayout error: %v", err)
	}
	if !scoreNear(payout.RiskScore, 0.1) {
		t.Fatalf("recorded risk score %.2f, expected 0.10", payout.RiskScore)
	}
}
