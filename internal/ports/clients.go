package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
)

type AccountProfile struct {
	AccountID string
	CreatedAt time.Time
}

// AccountDirectory looks up account records owned by the platform's identity
// domain; the risk scorer needs the account's age.
type AccountDirectory interface {
	GetAccount(ctx context.Context, accountID string) (AccountProfile, error)
}

// RoleResolver maps a functional role on an entity to a concrete account.
// It is supplied by the entity's owning domain, which knows who the artist
// or host of a given event, drop, or subscription is.
type RoleResolver interface {
	ResolveRole(ctx context.Context, entityType domain.EntityType, entityID string, role domain.RecipientRole) (string, error)
}

type PayoutDestination struct {
	AccountID         string
	Provider          string
	ExternalAccountID string
}

// DestinationReader returns the external payout destination a recipient has
// registered with the platform.
type DestinationReader interface {
	GetPayoutDestination(ctx context.Context, accountID string) (PayoutDestination, error)
}

type TransferRequest struct {
	AmountMinorUnits int64
	Currency         string
	Destination      PayoutDestination
	IdempotencyKey   string
	Metadata         map[string]string
}

type TransferResult struct {
	TransferID string
}

// TransferClient submits a transfer to the external payment processor. The
// processor is opaque: a transfer either yields an identifier or a
// *domain.TransferError.
type TransferClient interface {
	CreateTransfer(ctx context.Context, req TransferRequest) (TransferResult, error)
}
