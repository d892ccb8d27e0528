package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

// releaseReservation drops an idempotency reservation after a business
// failure so the caller can retry once the underlying condition is fixed.
// A failed release is logged; the record still lapses at its TTL.
func (s *Service) releaseReservation(ctx context.Context, key string) {
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "idempotency reservation not released",
			"key", key,
			"error", err,
		)
	}
}

// QueuePayout validates and schedules a payout request. The payout is always
// created pending; the risk score recorded here only affects whether the
// batch processor will later select it. Callers outside the service must
// supply an idempotency key; internal system callers dedup upstream (splits
// dedup per purchase).
func (s *Service) QueuePayout(ctx context.Context, actor Actor, input QueuePayoutInput) (domain.Payout, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Payout{}, domain.ErrUnauthorized
	}
	if actor.Role != "admin" && actor.Role != "system" && actor.SubjectID != input.AccountID {
		return domain.Payout{}, domain.ErrForbidden
	}
	idemKey := strings.TrimSpace(actor.IdempotencyKey)
	if actor.Role != "system" && idemKey == "" {
		return domain.Payout{}, domain.ErrIdempotencyRequired
	}
	if input.PayoutType == "" {
		input.PayoutType = domain.PayoutTypeScheduled
	}
	if err := domain.ValidatePayoutInput(input.AccountID, input.AmountMinorUnits, input.PayoutType); err != nil {
		return domain.Payout{}, err
	}
	if input.AmountMinorUnits < s.cfg.MinPayoutMinorUnits {
		return domain.Payout{}, fmt.Errorf("%w: amount %d below payout minimum %d", domain.ErrValidation, input.AmountMinorUnits, s.cfg.MinPayoutMinorUnits)
	}
	if input.PayoutType == domain.PayoutTypeInstant && input.AmountMinorUnits > s.cfg.InstantCeilingMinorUnits {
		return domain.Payout{}, fmt.Errorf("%w: amount %d exceeds instant payout ceiling %d", domain.ErrValidation, input.AmountMinorUnits, s.cfg.InstantCeilingMinorUnits)
	}
	if input.Currency == "" {
		input.Currency = s.cfg.DefaultCurrency
	}

	var storeKey string
	if idemKey != "" {
		storeKey = "payouts:request:" + actor.SubjectID + ":" + idemKey
		requestHash := hashPayload(input)
		existing, err := s.idempotency.Get(ctx, storeKey, s.nowFn())
		if err != nil {
			return domain.Payout{}, err
		}
		if existing != nil {
			if existing.RequestHash != requestHash {
				return domain.Payout{}, domain.ErrIdempotencyConflict
			}
			if len(existing.ResponseBody) == 0 {
				// Reserved but never completed: the original request is
				// still in flight or died mid-way.
				return domain.Payout{}, fmt.Errorf("%w: payout request still in flight", domain.ErrConflict)
			}
			var cached domain.Payout
			if err := json.Unmarshal(existing.ResponseBody, &cached); err != nil {
				return domain.Payout{}, err
			}
			return cached, nil
		}
		if err := s.idempotency.Reserve(ctx, storeKey, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
			return domain.Payout{}, err
		}
	}

	balance, err := s.ledger.AccountBalance(ctx, input.AccountID)
	if err != nil {
		if storeKey != "" {
			s.releaseReservation(ctx, storeKey)
		}
		return domain.Payout{}, fmt.Errorf("account balance: %w", err)
	}
	if balance < input.AmountMinorUnits {
		// Release the reservation: the balance can change, and the same
		// request must be retryable once it does.
		if storeKey != "" {
			s.releaseReservation(ctx, storeKey)
		}
		return domain.Payout{}, fmt.Errorf("%w: balance %d, requested %d", domain.ErrInsufficientBalance, balance, input.AmountMinorUnits)
	}

	riskScore, err := s.ScorePayoutRisk(ctx, input.AccountID, input.AmountMinorUnits)
	if err != nil {
		if storeKey != "" {
			s.releaseReservation(ctx, storeKey)
		}
		return domain.Payout{}, fmt.Errorf("risk score: %w", err)
	}

	now := s.nowFn()
	scheduledFor := input.ScheduledFor
	if scheduledFor.IsZero() {
		if input.PayoutType == domain.PayoutTypeInstant {
			scheduledFor = now
		} else {
			scheduledFor = nextBatchWindow(now, s.cfg.BatchHourUTC)
		}
	}

	payout := domain.Payout{
		PayoutID:         uuid.NewString(),
		AccountID:        input.AccountID,
		AmountMinorUnits: input.AmountMinorUnits,
		Currency:         input.Currency,
		Status:           domain.PayoutStatusPending,
		PayoutType:       input.PayoutType,
		RiskScore:        riskScore,
		ScheduledFor:     scheduledFor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.payouts.Create(ctx, payout); err != nil {
		if storeKey != "" {
			s.releaseReservation(ctx, storeKey)
		}
		return domain.Payout{}, fmt.Errorf("create payout: %w", err)
	}
	if storeKey != "" {
		body, err := json.Marshal(payout)
		if err != nil {
			return domain.Payout{}, err
		}
		if err := s.idempotency.Complete(ctx, storeKey, 201, body, s.nowFn()); err != nil {
			return domain.Payout{}, err
		}
	}
	if s.cfg.Risk.Held(riskScore) {
		s.logger.WarnContext(ctx, "payout held for risk review",
			"operation", "queue_payout",
			"payout_id", payout.PayoutID,
			"account_id", payout.AccountID,
			"risk_score", riskScore,
		)
	}
	return payout, nil
}

// RequestInstantPayout queues a payout for immediate processing, subject to
// the instant ceiling.
func (s *Service) RequestInstantPayout(ctx context.Context, actor Actor, accountID string, amountMinorUnits int64) (domain.Payout, error) {
	return s.QueuePayout(ctx, actor, QueuePayoutInput{
		AccountID:        accountID,
		AmountMinorUnits: amountMinorUnits,
		PayoutType:       domain.PayoutTypeInstant,
	})
}

func (s *Service) GetPayout(ctx context.Context, actor Actor, payoutID string) (domain.Payout, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Payout{}, domain.ErrUnauthorized
	}
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if actor.Role != "admin" && actor.Role != "system" && payout.AccountID != actor.SubjectID {
		return domain.Payout{}, domain.ErrForbidden
	}
	return payout, nil
}

func (s *Service) ListPayouts(ctx context.Context, actor Actor, query ports.PayoutQuery) (PayoutListOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return PayoutListOutput{}, domain.ErrUnauthorized
	}
	if actor.Role != "admin" {
		query.AccountID = actor.SubjectID
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	items, total, err := s.payouts.List(ctx, query)
	if err != nil {
		return PayoutListOutput{}, err
	}
	return PayoutListOutput{
		Items: items,
		Pagination: contracts.Pagination{
			Limit:  query.Limit,
			Offset: query.Offset,
			Total:  total,
		},
	}, nil
}

// CancelPayout moves a payout from pending to cancelled. Any other starting
// state is a conflict; in-flight transfers cannot be recalled.
func (s *Service) CancelPayout(ctx context.Context, actor Actor, payoutID string) (domain.Payout, error) {
	payout, err := s.GetPayout(ctx, actor, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if !domain.CanTransition(payout.Status, domain.PayoutStatusCancelled) {
		return domain.Payout{}, fmt.Errorf("%w: payout is %s", domain.ErrConflict, payout.Status)
	}
	now := s.nowFn()
	cancelled := payout
	cancelled.Status = domain.PayoutStatusCancelled
	cancelled.UpdatedAt = now
	if err := s.payouts.CompareAndSwap(ctx, cancelled, domain.PayoutStatusPending); err != nil {
		return domain.Payout{}, err
	}
	if err := s.enqueuePayoutCancelled(ctx, cancelled, now); err != nil {
		s.logger.WarnContext(ctx, "payout cancelled event not enqueued",
			"operation", "cancel_payout",
			"payout_id", payout.PayoutID,
			"error", err,
		)
	}
	return cancelled, nil
}

// nextBatchWindow returns the next occurrence of the fixed daily UTC
// processing time.
func nextBatchWindow(now time.Time, hourUTC int) time.Time {
	now = now.UTC()
	window := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !window.After(now) {
		window = window.Add(24 * time.Hour)
	}
	return window
}
