package grpc

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

// Stub clients for the identity, catalog, and payout-profile services. They
// stand in for the real gRPC surfaces until those services expose them on
// the mesh.
type AccountClient struct{}
type CatalogClient struct{}
type ProfileClient struct{}

func NewAccountClient(_ string) *AccountClient { return &AccountClient{} }
func NewCatalogClient(_ string) *CatalogClient { return &CatalogClient{} }
func NewProfileClient(_ string) *ProfileClient { return &ProfileClient{} }

func (c *AccountClient) GetAccount(_ context.Context, accountID string) (ports.AccountProfile, error) {
	return ports.AccountProfile{
		AccountID: accountID,
		CreatedAt: time.Now().UTC().AddDate(0, -6, 0),
	}, nil
}

func (c *CatalogClient) ResolveRole(_ context.Context, entityType domain.EntityType, entityID string, role domain.RecipientRole) (string, error) {
	_ = entityType
	_ = entityID
	return "acct-" + string(role), nil
}

func (c *ProfileClient) GetPayoutDestination(_ context.Context, accountID string) (ports.PayoutDestination, error) {
	return ports.PayoutDestination{
		AccountID:         accountID,
		Provider:          "stripe",
		ExternalAccountID: "acct_" + accountID,
	}, nil
}
