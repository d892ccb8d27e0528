package postgres

import (
	"encoding/json"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
)

func encodeJSON(v any) string {
	if v == nil {
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

func decodeMetadata(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func toLedgerEntryModel(entry domain.LedgerEntry) ledgerEntryModel {
	return ledgerEntryModel{
		EntryID:          entry.EntryID,
		AccountID:        entry.AccountID,
		AmountMinorUnits: entry.AmountMinorUnits,
		Currency:         entry.Currency,
		Kind:             string(entry.Kind),
		EventSource:      string(entry.EventSource),
		ReferenceID:      entry.ReferenceID,
		CorrelationID:    entry.CorrelationID,
		Description:      entry.Description,
		Metadata:         encodeJSON(entry.Metadata),
		CreatedAt:        entry.CreatedAt,
	}
}

func toDomainLedgerEntry(rec ledgerEntryModel) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:          rec.EntryID,
		AccountID:        rec.AccountID,
		AmountMinorUnits: rec.AmountMinorUnits,
		Currency:         rec.Currency,
		Kind:             domain.EntryKind(rec.Kind),
		EventSource:      domain.EventSource(rec.EventSource),
		ReferenceID:      rec.ReferenceID,
		CorrelationID:    rec.CorrelationID,
		Description:      rec.Description,
		Metadata:         decodeMetadata(rec.Metadata),
		CreatedAt:        rec.CreatedAt,
	}
}

func toSplitRuleModel(rule domain.SplitRule) splitRuleModel {
	return splitRuleModel{
		RuleID:     rule.RuleID,
		OwnerID:    rule.OwnerID,
		Name:       rule.Name,
		EntityType: string(rule.EntityType),
		EntityID:   rule.EntityID,
		Recipients: encodeJSON(rule.Recipients),
		IsDefault:  rule.IsDefault,
		IsActive:   rule.IsActive,
		CreatedAt:  rule.CreatedAt,
		UpdatedAt:  rule.UpdatedAt,
	}
}

func toDomainSplitRule(rec splitRuleModel) domain.SplitRule {
	var recipients []domain.SplitRecipient
	if rec.Recipients != "" {
		_ = json.Unmarshal([]byte(rec.Recipients), &recipients)
	}
	return domain.SplitRule{
		RuleID:     rec.RuleID,
		OwnerID:    rec.OwnerID,
		Name:       rec.Name,
		EntityType: domain.EntityType(rec.EntityType),
		EntityID:   rec.EntityID,
		Recipients: recipients,
		IsDefault:  rec.IsDefault,
		IsActive:   rec.IsActive,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func toPayoutModel(payout domain.Payout) payoutModel {
	rec := payoutModel{
		PayoutID:           payout.PayoutID,
		AccountID:          payout.AccountID,
		AmountMinorUnits:   payout.AmountMinorUnits,
		Currency:           payout.Currency,
		Status:             string(payout.Status),
		PayoutType:         string(payout.PayoutType),
		RiskScore:          payout.RiskScore,
		ExternalTransferID: payout.ExternalTransferID,
		ScheduledFor:       payout.ScheduledFor,
		CompletedAt:        payout.CompletedAt,
		FailureCode:        payout.FailureCode,
		FailureMessage:     payout.FailureMessage,
		Metadata:           encodeJSON(payout.Metadata),
		CreatedAt:          payout.CreatedAt,
		UpdatedAt:          payout.UpdatedAt,
	}
	if !payout.InitiatedAt.IsZero() {
		initiated := payout.InitiatedAt
		rec.InitiatedAt = &initiated
	}
	return rec
}

func toDomainPayout(rec payoutModel) domain.Payout {
	payout := domain.Payout{
		PayoutID:           rec.PayoutID,
		AccountID:          rec.AccountID,
		AmountMinorUnits:   rec.AmountMinorUnits,
		Currency:           rec.Currency,
		Status:             domain.PayoutStatus(rec.Status),
		PayoutType:         domain.PayoutType(rec.PayoutType),
		RiskScore:          rec.RiskScore,
		ExternalTransferID: rec.ExternalTransferID,
		ScheduledFor:       rec.ScheduledFor,
		CompletedAt:        rec.CompletedAt,
		FailureCode:        rec.FailureCode,
		FailureMessage:     rec.FailureMessage,
		Metadata:           decodeMetadata(rec.Metadata),
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
	if rec.InitiatedAt != nil {
		payout.InitiatedAt = *rec.InitiatedAt
	}
	return payout
}
