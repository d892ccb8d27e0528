package ports

import (
	"context"
	"time"
)

// DisputeStats tracks platform-wide disputes and chargebacks for the risk
// scorer's trailing window.
type DisputeStats interface {
	RecordDispute(ctx context.Context, at time.Time) error
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// ProcessingLock provides cross-instance exclusivity for the recurring payout
// batch so only one scheduler trigger runs at a time.
type ProcessingLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
