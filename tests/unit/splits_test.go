package unit

import (
	"context"
	"errors"
	"testing"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
)

func shareFor(t *testing.T, shares []domain.SplitShare, role domain.RecipientRole) domain.SplitShare {
	t.Helper()
	for _, share := range shares {
		if share.Role == role {
			return share
		}
	}
	t.Fatalf("no share for role %s", role)
	return domain.SplitShare{}
}

func TestApplySplitsEventDefaults(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.roles.Bind(domain.EntityTypeEvent, "evt_1", domain.RoleArtist, "acct-artist")
	f.roles.Bind(domain.EntityTypeEvent, "evt_1", domain.RoleHost, "acct-host")

	result, err := f.svc.ApplySplits(ctx, adminActor(), application.ApplySplitsInput{
		PurchaseID:       "pur_1",
		AmountMinorUnits: 100000,
		EntityType:       domain.EntityTypeEvent,
		EntityID:         "evt_1",
	})
	if err != nil {
		t.Fatalf("ApplySplits error: %v", err)
	}

	artist := shareFor(t, result.Shares, domain.RoleArtist)
	platform := shareFor(t, result.Shares, domain.RolePlatform)
	host := shareFor(t, result.Shares, domain.RoleHost)
	if artist.AmountMinorUnits != 70000 || platform.AmountMinorUnits != 20000 || host.AmountMinorUnits != 10000 {
		t.Fatalf("event split 70/20/10 expected, got artist=%d platform=%d host=%d",
			artist.AmountMinorUnits, platform.AmountMinorUnits, host.AmountMinorUnits)
	}

	var distributed int64
	for _, share := range result.Shares {
		distributed += share.AmountMinorUnits
	}
	if distributed != 100000 {
		t.Fatalf("shares distribute %d, expected the full 100000", distributed)
	}

	// Both non-platform shares clear the payout minimum.
	if len(result.PayoutIDs) != 2 {
		t.Fatalf("expected 2 queued payouts, got %d", len(result.PayoutIDs))
	}

	balance, err := f.svc.GetAccountBalance(ctx, "acct-artist")
	if err != nil {
		t.Fatalf("GetAccountBalance error: %v", err)
	}
	if balance != 70000 {
		t.Fatalf("artist balance %d, expected 70000", balance)
	}

	// The platform share never moves; the reserve is debited only for the
	// distributed recipient shares.
	reserve, err := f.svc.GetAccountBalance(ctx, "platform-reserve")
	if err != nil {
		t.Fatalf("GetAccountBalance error: %v", err)
	}
	if reserve != -80000 {
		t.Fatalf("reserve balance %d, expected -80000", reserve)
	}

	report, err := f.svc.ValidateGlobalBalance(ctx)
	if err != nil {
		t.Fatalf("ValidateGlobalBalance error: %v", err)
	}
	if !report.IsBalanced {
		t.Fatalf("split writes should keep the ledger balanced, imbalance %d", report.TotalImbalance)
	}
}

func TestApplySplitsRemainderGoesToPlatform(t *testing.T) {
	f := newFixture()
	f.roles.Bind(domain.EntityTypeEvent, "evt_2", domain.RoleArtist, "acct-artist")
	f.roles.Bind(domain.EntityTypeEvent, "evt_2", domain.RoleHost, "acct-host")

	result, err := f.svc.ApplySplits(context.Background(), adminActor(), application.ApplySplitsInput{
		PurchaseID:       "pur_2",
		AmountMinorUnits: 10001,
		EntityType:       domain.EntityTypeEvent,
		EntityID:         "evt_2",
	})
	if err != nil {
		t.Fatalf("ApplySplits error: %v", err)
	}

	artist := shareFor(t, result.Shares, domain.RoleArtist)
	platform := shareFor(t, result.Shares, domain.RolePlatform)
	host := shareFor(t, result.Shares, domain.RoleHost)
	if artist.AmountMinorUnits != 7000 || host.AmountMinorUnits != 1000 {
		t.Fatalf("floored shares expected 7000/1000, got %d/%d", artist.AmountMinorUnits, host.AmountMinorUnits)
	}
	if platform.AmountMinorUnits != 2001 {
		t.Fatalf("platform should absorb the rounding residue, got %d", platform.AmountMinorUnits)
	}

	// The host share sits below the payout minimum and stays on the ledger
	// balance; only the artist payout is queued.
	if len(result.PayoutIDs) != 1 {
		t.Fatalf("expected 1 queued payout, got %d", len(result.PayoutIDs))
	}
}

func TestApplySplitsIdempotentReplay(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.roles.Bind(domain.EntityTypeEvent, "evt_3", domain.RoleArtist, "acct-artist")
	f.roles.Bind(domain.EntityTypeEvent, "evt_3", domain.RoleHost, "acct-host")
	input := application.ApplySplitsInput{
		PurchaseID:       "pur_3",
		AmountMinorUnits: 100000,
		EntityType:       domain.EntityTypeEvent,
		EntityID:         "evt_3",
	}

	first, err := f.svc.ApplySplits(ctx, adminActor(), input)
	if err != nil {
		t.Fatalf("first ApplySplits error: %v", err)
	}
	second, err := f.svc.ApplySplits(ctx, adminActor(), input)
	if err != nil {
		t.Fatalf("replayed ApplySplits error: %v", err)
	}
	if len(second.PayoutIDs) != len(first.PayoutIDs) {
		t.Fatalf("replay returned %d payouts, first run %d", len(second.PayoutIDs), len(first.PayoutIDs))
	}

	// The replay must not write a second round of ledger entries.
	balance, err := f.svc.GetAccountBalance(ctx, "acct-artist")
	if err != nil {
		t.Fatalf("GetAccountBalance error: %v", err)
	}
	if balance != 70000 {
		t.Fatalf("replay doubled the artist balance: %d", balance)
	}
}

func TestApplySplitsIdempotencyConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.roles.Bind(domain.EntityTypeEvent, "evt_4", domain.RoleArtist, "acct-artist")
	f.roles.Bind(domain.EntityTypeEvent, "evt_4", domain.RoleHost, "acct-host")

	_, err := f.svc.ApplySplits(ctx, adminActor(), application.ApplySplitsInput{
		PurchaseID:       "pur_4",
		AmountMinorUnits: 100000,
		EntityType:       domain.EntityTypeEvent,
		EntityID:         "evt_4",
	})
	if err != nil {
		t.Fatalf("ApplySplits error: %v", err)
	}

	_, err = f.svc.ApplySplits(ctx, adminActor(), application.ApplySplitsInput{
		PurchaseID:       "pur_4",
		AmountMinorUnits: 50000,
		EntityType:       domain.EntityTypeEvent,
		EntityID:         "evt_4",
	})
	if !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict for reused purchase id, got %v", err)
	}
}

func TestApplySplitsDropsUnresolvedRole(t *testing.T) {
	f := newFixture()
	// Host is never bound, so the event rule's host line is dropped and the
	// split proceeds over the resolvable recipients.
	f.roles.Bind(domain.EntityTypeEvent, "evt_5", domain.RoleArtist, "acct-artist")

	result, err := f.svc.ApplySplits(context.Background(), adminActor(), application.ApplySplitsInput{
		PurchaseID:       "pur_5",
		AmountMinorUnits: 10000,
		EntityType:       domain.EntityTypeEvent,
		EntityID:         "evt_5",
	})
	if err != nil {
		t.Fatalf("ApplySplits error: %v", err)
	}
	if len(result.SkippedRoles) != 1 || result.SkippedRoles[0] != string(domain.RoleHost) {
		t.Fatalf("expected host in skipped roles, got %v", result.SkippedRoles)
	}

	artist := shareFor(t, result.Shares, domain.RoleArtist)
	platform := shareFor(t, result.Shares, domain.RolePlatform)
	if artist.AmountMinorUnits != 7000 {
		t.Fatalf("artist share %d, expected 7000", artist.AmountMinorUnits)
	}
	// The undistributed host percentage falls through to the platform as
	// rounding residue.
	if platform.AmountMinorUnits != 3000 {
		t.Fatalf("platform share %d, expected 3000", platform.AmountMinorUnits)
	}
}

func TestApplySplitsNoResolvableRecipients(t *testing.T) {
	f := newFixture()
	// SplitRules with only unresolvable roles must fail rather than burn
	// the purchase silently.
	rule := application.CreateSplitRuleInput{
		OwnerID:    "acct-owner",
		Name:       "promoter only",
		EntityType: domain.EntityTypeEvent,
		EntityID:   "evt_6",
		Recipients: []domain.SplitRecipient{{Role: domain.RolePromoter, Percent: 100}},
	}
	if _, err := f.svc.CreateSplitRule(context.Background(), adminActor(), rule); err != nil {
		t.Fatalf("CreateSplitRule error: %v", err)
	}

	_, err := f.svc.ApplySplits(context.Background(), adminActor(), application.ApplySplitsInput{
		PurchaseID:       "pur_6",
		AmountMinorUnits: 10000,
		EntityType:       domain.EntityTypeEvent,
		EntityID:         "evt_6",
	})
	if !errors.Is(err, domain.ErrRecipientResolution) {
		t.Fatalf("expected ErrRecipientResolution, got %v", err)
	}
}

func TestApplySplitsRetryAfterResolutionFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rule := application.CreateSplitRuleInput{
		OwnerID:    "acct-owner",
		Name:       "promoter only",
		EntityType: domain.EntityTypeEvent,
		EntityID:   "evt_7",
		Recipients: []domain.SplitRecipient{{Role: domain.RolePromoter, Percent: 100}},
	}
	if _, err := f.svc.CreateSplitRule(ctx, adminActor(), rule); err != nil {
		t.Fatalf("CreateSplitRule error: %v", err)
	}
	input := application.ApplySplitsInput{
		PurchaseID:       "pur_7",
		AmountMinorUnits: 10000,
		EntityType:       domain.EntityTypeEvent,
		EntityID:         "evt_7",
	}

	_, err := f.svc.ApplySplits(ctx, adminActor(), input)
	if !errors.Is(err, domain.ErrRecipientResolution) {
		t.Fatalf("expected ErrRecipientResolution, got %v", err)
	}

	// Once the missing role is bound the same purchase must apply cleanly
	// instead of being locked out by the failed attempt.
	f.roles.Bind(domain.EntityTypeEvent, "evt_7", domain.RolePromoter, "acct-promoter")
	result, err := f.svc.ApplySplits(ctx, adminActor(), input)
	if err != nil {
		t.Fatalf("retried ApplySplits error: %v", err)
	}
	if got := shareFor(t, result.Shares, domain.RolePromoter).AmountMinorUnits; got != 10000 {
		t.Fatalf("promoter share %d, expected 10000", got)
	}

	balance, err := f.svc.GetAccountBalance(ctx, "acct-promoter")
	if err != nil {
		t.Fatalf("GetAccountBalance error: %v", err)
	}
	if balance != 10000 {
		t.Fatalf("promoter balance %d, expected 10000", balance)
	}
}

func TestSplitRuleResolutionOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.CreateSplitRule(ctx, adminActor(), application.CreateSplitRuleInput{
		OwnerID:    "acct-owner",
		Name:       "event default",
		EntityType: domain.EntityTypeEvent,
		IsDefault:  true,
		Recipients: []domain.SplitRecipient{
			{RecipientID: "acct-owner", Role: domain.RoleArtist, Percent: 90},
			{Role: domain.RolePlatform, Percent: 10},
		},
	})
	if err != nil {
		t.Fatalf("CreateSplitRule default error: %v", err)
	}
	_, err = f.svc.CreateSplitRule(ctx, adminActor(), application.CreateSplitRuleInput{
		OwnerID:    "acct-owner",
		Name:       "festival special",
		EntityType: domain.EntityTypeEvent,
		EntityID:   "evt_special",
		Recipients: []domain.SplitRecipient{
			{RecipientID: "acct-owner", Role: domain.RoleArtist, Percent: 60},
			{RecipientID: "acct-promoter", Role: domain.RolePromoter, Percent: 25},
			{Role: domain.RolePlatform, Percent: 15},
		},
	})
	if err != nil {
		t.Fatalf("CreateSplitRule exact error: %v", err)
	}

	exact, err := f.svc.GetSplitRules(ctx, domain.EntityTypeEvent, "evt_special")
	if err != nil {
		t.Fatalf("GetSplitRules exact error: %v", err)
	}
	if len(exact) != 3 || exact[0].Percent != 60 {
		t.Fatalf("entity-scoped rule should win, got %v", exact)
	}

	fallback, err := f.svc.GetSplitRules(ctx, domain.EntityTypeEvent, "evt_other")
	if err != nil {
		t.Fatalf("GetSplitRules default error: %v", err)
	}
	if len(fallback) != 2 || fallback[0].Percent != 90 {
		t.Fatalf("type default should apply to other entities, got %v", fallback)
	}

	table, err := f.svc.GetSplitRules(ctx, domain.EntityTypeTip, "tip_1")
	if err != nil {
		t.Fatalf("GetSplitRules platform table error: %v", err)
	}
	if len(table) != 2 || table[0].Role != domain.RoleArtist || table[0].Percent != 95 {
		t.Fatalf("tip falls back to the 95/5 platform table, got %v", table)
	}
}

func TestListSplitRulesScopesToOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, owner := range []string{"acct-a", "acct-a", "acct-b"} {
		_, err := f.svc.CreateSplitRule(ctx, adminActor(), application.CreateSplitRuleInput{
			OwnerID:    owner,
			Name:       "rule for " + owner,
			EntityType: domain.EntityTypeEvent,
			Recipients: []domain.SplitRecipient{
				{RecipientID: owner, Role: domain.RoleArtist, Percent: 100},
			},
		})
		if err != nil {
			t.Fatalf("CreateSplitRule error: %v", err)
		}
	}

	mine, err := f.svc.ListSplitRules(ctx, userActor("acct-a"), "", 20, 0)
	if err != nil {
		t.Fatalf("ListSplitRules error: %v", err)
	}
	if mine.Pagination.Total != 2 {
		t.Fatalf("owner list total %d, expected 2", mine.Pagination.Total)
	}

	all, err := f.svc.ListSplitRules(ctx, adminActor(), "", 20, 0)
	if err != nil {
		t.Fatalf("admin ListSplitRules error: %v", err)
	}
	if all.Pagination.Total != 3 {
		t.Fatalf("admin list total %d, expected 3", all.Pagination.Total)
	}
}

func TestCreateSplitRuleValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.CreateSplitRule(ctx, adminActor(), application.CreateSplitRuleInput{
		OwnerID:    "acct-owner",
		Name:       "short",
		EntityType: domain.EntityTypeEvent,
		Recipients: []domain.SplitRecipient{
			{RecipientID: "acct-owner", Role: domain.RoleArtist, Percent: 60},
			{Role: domain.RolePlatform, Percent: 30},
		},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for 90%% total, got %v", err)
	}

	_, err = f.svc.CreateSplitRule(ctx, userActor("acct-other"), application.CreateSplitRuleInput{
		OwnerID:    "acct-owner",
		Name:       "not yours",
		EntityType: domain.EntityTypeEvent,
		Recipients: []domain.SplitRecipient{
			{RecipientID: "acct-owner", Role: domain.RoleArtist, Percent: 100},
		},
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign owner, got %v", err)
	}
}
