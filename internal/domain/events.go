package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventPurchaseCompleted = "checkout.purchase_completed"
	EventSplitApplied      = "ledger.split_applied"
	EventLedgerImbalance   = "ledger.imbalance_detected"
	EventPayoutProcessing  = "payout.processing"
	EventPayoutCompleted   = "payout.completed"
	EventPayoutFailed      = "payout.failed"
	EventPayoutCancelled   = "payout.cancelled"
)
