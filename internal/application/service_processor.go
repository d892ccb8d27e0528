package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

const batchLockKey = "payouts:batch:lock"

// ProcessDuePayouts runs one batch trigger: select due, low-risk pending
// payouts and process each independently. A single payout's failure never
// aborts the batch. When a processing lock is configured, overlapping
// triggers from other scheduler instances are skipped.
func (s *Service) ProcessDuePayouts(ctx context.Context) (BatchResult, error) {
	if s.batchLock != nil {
		acquired, err := s.batchLock.Acquire(ctx, batchLockKey, s.cfg.BatchLockTTL)
		if err != nil {
			return BatchResult{}, fmt.Errorf("acquire batch lock: %w", err)
		}
		if !acquired {
			s.logger.InfoContext(ctx, "payout batch already running elsewhere",
				"operation", "process_due_payouts",
				"outcome", "skipped",
			)
			return BatchResult{}, nil
		}
		defer func() {
			if err := s.batchLock.Release(ctx, batchLockKey); err != nil {
				s.logger.WarnContext(ctx, "batch lock release failed", "error", err)
			}
		}()
	}

	now := s.nowFn()
	due, err := s.payouts.ListDue(ctx, now, s.cfg.Risk.HoldThreshold, s.cfg.BatchSize)
	if err != nil {
		return BatchResult{}, fmt.Errorf("select due payouts: %w", err)
	}

	result := BatchResult{Selected: len(due)}
	for _, payout := range due {
		if err := s.ProcessOne(ctx, payout.PayoutID); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// Another trigger already claimed it.
				result.Skipped++
				continue
			}
			s.logger.ErrorContext(ctx, "payout processing failed",
				"operation", "process_due_payouts",
				"payout_id", payout.PayoutID,
				"error", err,
			)
			result.Failed++
			continue
		}
		result.Completed++
	}
	s.logger.InfoContext(ctx, "payout batch completed",
		"operation", "process_due_payouts",
		"outcome", "success",
		"selected", result.Selected,
		"completed", result.Completed,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}

// ProcessOne executes a single payout end to end: claim it with an atomic
// pending-to-processing swap, resolve the recipient's destination, submit
// the transfer, and record the outcome. Transfer failures are recorded on
// the payout and returned to the caller; the batch loop absorbs them.
func (s *Service) ProcessOne(ctx context.Context, payoutID string) error {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return err
	}
	if !domain.CanTransition(payout.Status, domain.PayoutStatusProcessing) {
		return fmt.Errorf("%w: payout is %s", domain.ErrConflict, payout.Status)
	}

	now := s.nowFn()
	payout.Status = domain.PayoutStatusProcessing
	payout.InitiatedAt = now
	payout.UpdatedAt = now
	if err := s.payouts.CompareAndSwap(ctx, payout, domain.PayoutStatusPending); err != nil {
		return err
	}
	s.publishPayoutProcessing(ctx, payout)

	destination, err := s.destinations.GetPayoutDestination(ctx, payout.AccountID)
	if err != nil {
		return s.failPayout(ctx, payout, "destination_unavailable", err.Error())
	}

	result, transferErr := s.submitTransfer(ctx, payout, destination)
	if transferErr != nil {
		var te *domain.TransferError
		if errors.As(transferErr, &te) {
			return s.failPayout(ctx, payout, te.Code, te.Message)
		}
		return s.failPayout(ctx, payout, "transfer_error", transferErr.Error())
	}

	completedAt := s.nowFn()
	payout.Status = domain.PayoutStatusCompleted
	payout.ExternalTransferID = result.TransferID
	payout.CompletedAt = &completedAt
	payout.UpdatedAt = completedAt
	if err := s.payouts.CompareAndSwap(ctx, payout, domain.PayoutStatusProcessing); err != nil {
		return err
	}
	if err := s.enqueuePayoutCompleted(ctx, payout, completedAt); err != nil {
		s.logger.WarnContext(ctx, "payout completed event not enqueued",
			"operation", "process_one",
			"payout_id", payout.PayoutID,
			"error", err,
		)
	}
	return nil
}

// submitTransfer calls the external processor with a per-attempt timeout and
// a bounded retry for transient errors. A timeout counts as failure; the
// processor is never assumed to have succeeded silently.
func (s *Service) submitTransfer(ctx context.Context, payout domain.Payout, destination ports.PayoutDestination) (ports.TransferResult, error) {
	req := ports.TransferRequest{
		AmountMinorUnits: payout.AmountMinorUnits,
		Currency:         payout.Currency,
		Destination:      destination,
		IdempotencyKey:   "payout:" + payout.PayoutID,
		Metadata: map[string]string{
			"payout_id":   payout.PayoutID,
			"payout_type": string(payout.PayoutType),
		},
	}
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxTransferAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.TransferTimeout)
		result, err := s.transfers.CreateTransfer(attemptCtx, req)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		var te *domain.TransferError
		if errors.As(err, &te) && !te.Retryable {
			return ports.TransferResult{}, err
		}
		if attempt < s.cfg.MaxTransferAttempts {
			s.logger.WarnContext(ctx, "transfer attempt failed, retrying",
				"operation", "submit_transfer",
				"payout_id", payout.PayoutID,
				"attempt", attempt,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ports.TransferResult{}, ctx.Err()
			case <-time.After(s.cfg.TransferRetryBackoff * time.Duration(attempt)):
			}
		}
	}
	return ports.TransferResult{}, lastErr
}

// failPayout records a terminal failure and surfaces the original error to
// the single-payout caller.
func (s *Service) failPayout(ctx context.Context, payout domain.Payout, code, message string) error {
	failedAt := s.nowFn()
	payout.Status = domain.PayoutStatusFailed
	payout.FailureCode = code
	payout.FailureMessage = message
	payout.UpdatedAt = failedAt
	if err := s.payouts.CompareAndSwap(ctx, payout, domain.PayoutStatusProcessing); err != nil {
		return err
	}
	if err := s.enqueuePayoutFailed(ctx, payout, failedAt); err != nil {
		s.logger.WarnContext(ctx, "payout failed event not enqueued",
			"operation", "process_one",
			"payout_id", payout.PayoutID,
			"error", err,
		)
	}
	return fmt.Errorf("payout %s failed: %s: %s", payout.PayoutID, code, message)
}
