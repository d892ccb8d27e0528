package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type EntityType string

const (
	EntityTypeEvent        EntityType = "event"
	EntityTypeSubscription EntityType = "subscription"
	EntityTypeDrop         EntityType = "drop"
	EntityTypeTip          EntityType = "tip"
	EntityTypeDefault      EntityType = "default"
)

type RecipientRole string

const (
	RoleArtist   RecipientRole = "artist"
	RoleHost     RecipientRole = "host"
	RolePlatform RecipientRole = "platform"
	RolePromoter RecipientRole = "promoter"
)

// SplitRecipient is one line of a split rule. RecipientID may be empty, in
// which case the recipient is resolved by role at application time.
type SplitRecipient struct {
	RecipientID string        `json:"recipient_id,omitempty"`
	Role        RecipientRole `json:"role"`
	Percent     float64       `json:"percent"`
}

// SplitRule is a named percentage distribution policy for an entity.
// Rules are created by an owning account and read-only to the split engine.
type SplitRule struct {
	RuleID     string           `json:"rule_id"`
	OwnerID    string           `json:"owner_id"`
	Name       string           `json:"name"`
	EntityType EntityType       `json:"entity_type"`
	EntityID   string           `json:"entity_id,omitempty"`
	Recipients []SplitRecipient `json:"recipients"`
	IsDefault  bool             `json:"is_default"`
	IsActive   bool             `json:"is_active"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// SplitShare is one recipient's computed portion of a purchase amount.
type SplitShare struct {
	RecipientID      string        `json:"recipient_id"`
	Role             RecipientRole `json:"role"`
	AmountMinorUnits int64         `json:"amount_minor_units"`
}

func ValidEntityType(entityType EntityType) bool {
	switch entityType {
	case EntityTypeEvent, EntityTypeSubscription, EntityTypeDrop, EntityTypeTip, EntityTypeDefault:
		return true
	default:
		return false
	}
}

func ValidRecipientRole(role RecipientRole) bool {
	switch role {
	case RoleArtist, RoleHost, RolePlatform, RolePromoter:
		return true
	default:
		return false
	}
}

// ValidateRecipients enforces the creation-time invariant that percentages
// sum to exactly 100.
func ValidateRecipients(recipients []SplitRecipient) error {
	if len(recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient required", ErrValidation)
	}
	total := decimal.Zero
	for _, r := range recipients {
		if !ValidRecipientRole(r.Role) {
			return fmt.Errorf("%w: unknown recipient role %s", ErrValidation, r.Role)
		}
		if r.Percent <= 0 {
			return fmt.Errorf("%w: recipient percent must be positive", ErrValidation)
		}
		total = total.Add(decimal.NewFromFloat(r.Percent))
	}
	if !total.Equal(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: recipient percentages sum to %s, expected 100", ErrValidation, total.String())
	}
	return nil
}

func ValidateSplitRuleInput(ownerID, name string, entityType EntityType, recipients []SplitRecipient) error {
	if strings.TrimSpace(ownerID) == "" {
		return fmt.Errorf("%w: owner id required", ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: rule name required", ErrValidation)
	}
	if !ValidEntityType(entityType) {
		return fmt.Errorf("%w: unknown entity type %s", ErrValidation, entityType)
	}
	return ValidateRecipients(recipients)
}

// PlatformDefaultRecipients is the hardcoded fallback table consulted when no
// stored rule matches an entity, directly or by type default.
func PlatformDefaultRecipients(entityType EntityType) []SplitRecipient {
	switch entityType {
	case EntityTypeEvent:
		return []SplitRecipient{
			{Role: RoleArtist, Percent: 70},
			{Role: RolePlatform, Percent: 20},
			{Role: RoleHost, Percent: 10},
		}
	case EntityTypeSubscription:
		return []SplitRecipient{
			{Role: RoleArtist, Percent: 85},
			{Role: RolePlatform, Percent: 15},
		}
	case EntityTypeTip:
		return []SplitRecipient{
			{Role: RoleArtist, Percent: 95},
			{Role: RolePlatform, Percent: 5},
		}
	case EntityTypeDrop:
		return []SplitRecipient{
			{Role: RoleArtist, Percent: 80},
			{Role: RolePlatform, Percent: 20},
		}
	default:
		return []SplitRecipient{
			{Role: RolePlatform, Percent: 100},
		}
	}
}

// CalculateSplits floors each recipient's share so the distributed total never
// exceeds the purchase amount. The rounding residue goes to the platform
// recipient when one is present; otherwise it never leaves the reserve
// account, which is debited only for the distributed shares.
func CalculateSplits(totalMinorUnits int64, recipients []SplitRecipient) []SplitShare {
	if totalMinorUnits <= 0 || len(recipients) == 0 {
		return nil
	}
	total := decimal.NewFromInt(totalMinorUnits)
	hundred := decimal.NewFromInt(100)

	shares := make([]SplitShare, 0, len(recipients))
	var distributed int64
	platformIdx := -1
	for _, r := range recipients {
		amount := total.Mul(decimal.NewFromFloat(r.Percent)).Div(hundred).Floor().IntPart()
		if r.Role == RolePlatform && platformIdx < 0 {
			platformIdx = len(shares)
		}
		shares = append(shares, SplitShare{
			RecipientID:      r.RecipientID,
			Role:             r.Role,
			AmountMinorUnits: amount,
		})
		distributed += amount
	}
	if remainder := totalMinorUnits - distributed; remainder > 0 && platformIdx >= 0 {
		shares[platformIdx].AmountMinorUnits += remainder
	}
	return shares
}
