package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
)

func (s *Service) CreateSplitRule(ctx context.Context, actor Actor, input CreateSplitRuleInput) (domain.SplitRule, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.SplitRule{}, domain.ErrUnauthorized
	}
	input.OwnerID = strings.TrimSpace(input.OwnerID)
	input.Name = strings.TrimSpace(input.Name)
	if err := domain.ValidateSplitRuleInput(input.OwnerID, input.Name, input.EntityType, input.Recipients); err != nil {
		return domain.SplitRule{}, err
	}
	if actor.Role != "admin" && actor.SubjectID != input.OwnerID {
		return domain.SplitRule{}, domain.ErrForbidden
	}
	now := s.nowFn()
	rule := domain.SplitRule{
		RuleID:     uuid.NewString(),
		OwnerID:    input.OwnerID,
		Name:       input.Name,
		EntityType: input.EntityType,
		EntityID:   strings.TrimSpace(input.EntityID),
		Recipients: input.Recipients,
		IsDefault:  input.IsDefault,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.splitRules.Create(ctx, rule); err != nil {
		return domain.SplitRule{}, fmt.Errorf("create split rule: %w", err)
	}
	return rule, nil
}

func (s *Service) GetSplitRule(ctx context.Context, actor Actor, ruleID string) (domain.SplitRule, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.SplitRule{}, domain.ErrUnauthorized
	}
	rule, err := s.splitRules.GetByID(ctx, ruleID)
	if err != nil {
		return domain.SplitRule{}, err
	}
	if actor.Role != "admin" && rule.OwnerID != actor.SubjectID {
		return domain.SplitRule{}, domain.ErrForbidden
	}
	return rule, nil
}

// ListSplitRules returns the caller's rules; admins may list any owner's.
func (s *Service) ListSplitRules(ctx context.Context, actor Actor, ownerID string, limit, offset int) (SplitRuleListOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return SplitRuleListOutput{}, domain.ErrUnauthorized
	}
	if actor.Role != "admin" {
		ownerID = actor.SubjectID
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.splitRules.List(ctx, ownerID, limit, offset)
	if err != nil {
		return SplitRuleListOutput{}, err
	}
	return SplitRuleListOutput{
		Items: items,
		Pagination: contracts.Pagination{
			Limit:  limit,
			Offset: offset,
			Total:  total,
		},
	}, nil
}

// GetSplitRules resolves the recipient set for an entity: an active rule
// scoped to the exact entity wins, then an active type default, then the
// hardcoded platform table. Later tiers are never consulted once a match is
// found.
func (s *Service) GetSplitRules(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.SplitRecipient, error) {
	if !domain.ValidEntityType(entityType) {
		return nil, fmt.Errorf("%w: unknown entity type %s", domain.ErrValidation, entityType)
	}
	if entityID != "" {
		rule, err := s.splitRules.FindForEntity(ctx, entityType, entityID)
		if err != nil {
			return nil, err
		}
		if rule != nil {
			return rule.Recipients, nil
		}
	}
	rule, err := s.splitRules.FindDefault(ctx, entityType)
	if err != nil {
		return nil, err
	}
	if rule != nil {
		return rule.Recipients, nil
	}
	return domain.PlatformDefaultRecipients(entityType), nil
}

// resolveRecipients fills in missing recipient IDs by role. The platform role
// maps to the reserve account; entity-scoped roles are resolved through the
// owning domain's role resolver. Roles that cannot be resolved are dropped
// with a warning so the split proceeds with the resolvable remainder.
func (s *Service) resolveRecipients(ctx context.Context, recipients []domain.SplitRecipient, entityType domain.EntityType, entityID string) (resolved []domain.SplitRecipient, skipped []string) {
	resolved = make([]domain.SplitRecipient, 0, len(recipients))
	for _, r := range recipients {
		if strings.TrimSpace(r.RecipientID) != "" {
			resolved = append(resolved, r)
			continue
		}
		if r.Role == domain.RolePlatform {
			r.RecipientID = s.cfg.PlatformReserveAccountID
			resolved = append(resolved, r)
			continue
		}
		accountID, err := s.roles.ResolveRole(ctx, entityType, entityID, r.Role)
		if err != nil || strings.TrimSpace(accountID) == "" {
			s.logger.WarnContext(ctx, "split recipient dropped",
				"operation", "resolve_recipients",
				"outcome", "skipped",
				"entity_type", string(entityType),
				"entity_id", entityID,
				"role", string(r.Role),
				"error", err,
			)
			skipped = append(skipped, string(r.Role))
			continue
		}
		r.RecipientID = accountID
		resolved = append(resolved, r)
	}
	return resolved, skipped
}

// ApplySplits orchestrates the split engine for one completed purchase:
// resolve the rule, compute per-recipient amounts, write paired ledger
// entries, and queue a payout per recipient. The operation is idempotent per
// purchase ID; a replayed call returns the recorded result without writing
// anything.
func (s *Service) ApplySplits(ctx context.Context, actor Actor, input ApplySplitsInput) (ApplySplitsResult, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return ApplySplitsResult{}, domain.ErrUnauthorized
	}
	input.PurchaseID = strings.TrimSpace(input.PurchaseID)
	if input.PurchaseID == "" {
		return ApplySplitsResult{}, fmt.Errorf("%w: purchase id required", domain.ErrValidation)
	}
	if input.AmountMinorUnits <= 0 {
		return ApplySplitsResult{}, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if !domain.ValidEntityType(input.EntityType) {
		return ApplySplitsResult{}, fmt.Errorf("%w: unknown entity type %s", domain.ErrValidation, input.EntityType)
	}
	if input.Currency == "" {
		input.Currency = s.cfg.DefaultCurrency
	}

	idempotencyKey := "splits:purchase:" + input.PurchaseID
	requestHash := hashPayload(input)
	now := s.nowFn()
	existing, err := s.idempotency.Get(ctx, idempotencyKey, now)
	if err != nil {
		return ApplySplitsResult{}, err
	}
	if existing != nil {
		if existing.RequestHash != requestHash {
			return ApplySplitsResult{}, domain.ErrIdempotencyConflict
		}
		if len(existing.ResponseBody) == 0 {
			return ApplySplitsResult{}, fmt.Errorf("%w: split application still in flight", domain.ErrConflict)
		}
		var cached ApplySplitsResult
		if err := json.Unmarshal(existing.ResponseBody, &cached); err != nil {
			return ApplySplitsResult{}, err
		}
		return cached, nil
	}
	if err := s.idempotency.Reserve(ctx, idempotencyKey, requestHash, now.Add(s.cfg.IdempotencyTTL)); err != nil {
		return ApplySplitsResult{}, err
	}

	recipients, err := s.GetSplitRules(ctx, input.EntityType, input.EntityID)
	if err != nil {
		s.releaseReservation(ctx, idempotencyKey)
		return ApplySplitsResult{}, fmt.Errorf("resolve split rules: %w", err)
	}
	resolved, skipped := s.resolveRecipients(ctx, recipients, input.EntityType, input.EntityID)
	if len(resolved) == 0 {
		// Release so the purchase can be replayed once its roles are
		// bound; nothing has been written yet.
		s.releaseReservation(ctx, idempotencyKey)
		return ApplySplitsResult{}, fmt.Errorf("%w: no resolvable recipients for %s/%s", domain.ErrRecipientResolution, input.EntityType, input.EntityID)
	}
	shares := domain.CalculateSplits(input.AmountMinorUnits, resolved)

	result := ApplySplitsResult{
		PurchaseID:       input.PurchaseID,
		AmountMinorUnits: input.AmountMinorUnits,
		Shares:           shares,
		SkippedRoles:     skipped,
	}

	// Each recipient is an independent atomic sub-operation: one failed
	// ledger write or payout enqueue must not abort the transfers that
	// already succeeded for the other recipients.
	for _, share := range shares {
		if share.Role == domain.RolePlatform || share.AmountMinorUnits <= 0 {
			// The platform's retained share is already implicitly held
			// by the reserve account; no ledger movement, no payout.
			continue
		}
		_, err := s.CreatePairedEntries(ctx, PairedEntriesInput{
			DebitAccountID:   s.cfg.PlatformReserveAccountID,
			CreditAccountID:  share.RecipientID,
			AmountMinorUnits: share.AmountMinorUnits,
			Currency:         input.Currency,
			EventSource:      domain.EventSourceSplit,
			ReferenceID:      input.PurchaseID,
			Description:      fmt.Sprintf("%s split for purchase %s", share.Role, input.PurchaseID),
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "split ledger write failed",
				"operation", "apply_splits",
				"outcome", "partial_failure",
				"purchase_id", input.PurchaseID,
				"recipient_id", share.RecipientID,
				"error", err,
			)
			continue
		}
		payout, err := s.queueSplitPayout(ctx, share, input)
		if err != nil {
			s.logger.WarnContext(ctx, "split payout not queued",
				"operation", "apply_splits",
				"outcome", "payout_skipped",
				"purchase_id", input.PurchaseID,
				"recipient_id", share.RecipientID,
				"error", err,
			)
			continue
		}
		result.PayoutIDs = append(result.PayoutIDs, payout.PayoutID)
	}

	if err := s.enqueueSplitApplied(ctx, result, input.EntityType); err != nil {
		s.logger.WarnContext(ctx, "split applied event not enqueued",
			"operation", "apply_splits",
			"purchase_id", input.PurchaseID,
			"error", err,
		)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return ApplySplitsResult{}, err
	}
	if err := s.idempotency.Complete(ctx, idempotencyKey, 201, payload, s.nowFn()); err != nil {
		return ApplySplitsResult{}, err
	}
	return result, nil
}

// queueSplitPayout schedules the recipient's share for the next nightly
// batch. Shares below the payout minimum stay on the recipient's ledger
// balance until a later payout can carry them.
func (s *Service) queueSplitPayout(ctx context.Context, share domain.SplitShare, input ApplySplitsInput) (domain.Payout, error) {
	return s.QueuePayout(ctx, Actor{SubjectID: share.RecipientID, Role: "system"}, QueuePayoutInput{
		AccountID:        share.RecipientID,
		AmountMinorUnits: share.AmountMinorUnits,
		Currency:         input.Currency,
		PayoutType:       domain.PayoutTypeScheduled,
	})
}
