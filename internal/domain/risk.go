package domain

// RiskPolicy externalizes the scoring weights and thresholds so they can be
// tuned through configuration without redeploying the scorer.
type RiskPolicy struct {
	NewAccountHoldDays      int
	NewAccountScore         float64
	LargeAmountMinorUnits   int64
	LargeAmountScore        float64
	VeryLargeMinorUnits     int64
	VeryLargeScore          float64
	FailureHistoryWindow    int
	FailureRateScoreMax     float64
	FirstPayoutScore        float64
	DisputeWindowDays       int
	DisputeScoreMax         float64
	DisputeSaturationCount  int
	HoldThreshold           float64
}

func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		NewAccountHoldDays:     30,
		NewAccountScore:        0.5,
		LargeAmountMinorUnits:  100000,
		LargeAmountScore:       0.2,
		VeryLargeMinorUnits:    500000,
		VeryLargeScore:         0.2,
		FailureHistoryWindow:   20,
		FailureRateScoreMax:    0.3,
		FirstPayoutScore:       0.1,
		DisputeWindowDays:      30,
		DisputeScoreMax:        0.3,
		DisputeSaturationCount: 10,
		HoldThreshold:          0.7,
	}
}

// RiskSignals are the raw inputs gathered for one prospective payout.
type RiskSignals struct {
	AccountAgeDays   int
	AmountMinorUnits int64
	RecentPayouts    int
	RecentFailures   int
	RecentDisputes   int
}

func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// ScoreSignals applies the additive risk model. Each factor contributes its
// configured weight; the sum is clamped to [0, 1].
func ScoreSignals(policy RiskPolicy, signals RiskSignals) float64 {
	score := 0.0
	if signals.AccountAgeDays < policy.NewAccountHoldDays {
		score += policy.NewAccountScore
	}
	if signals.AmountMinorUnits > policy.LargeAmountMinorUnits {
		score += policy.LargeAmountScore
	}
	if signals.AmountMinorUnits > policy.VeryLargeMinorUnits {
		score += policy.VeryLargeScore
	}
	if signals.RecentPayouts == 0 {
		score += policy.FirstPayoutScore
	} else {
		failureRate := float64(signals.RecentFailures) / float64(signals.RecentPayouts)
		score += ClampScore(failureRate) * policy.FailureRateScoreMax
	}
	if policy.DisputeSaturationCount > 0 {
		disputeFraction := float64(signals.RecentDisputes) / float64(policy.DisputeSaturationCount)
		score += ClampScore(disputeFraction) * policy.DisputeScoreMax
	}
	return ClampScore(score)
}

// Held reports whether a score crosses the manual-review threshold. Held
// payouts stay pending until released; the batch selection query excludes
// them.
func (p RiskPolicy) Held(score float64) bool {
	return score >= p.HoldThreshold
}
