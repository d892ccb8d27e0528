package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

// AccountDirectory is a static account lookup. Unknown accounts resolve to a
// profile created defaultAgeDays ago so local runs and tests do not need to
// seed every account they touch.
type AccountDirectory struct {
	mu             sync.RWMutex
	accounts       map[string]ports.AccountProfile
	defaultAgeDays int
	nowFn          func() time.Time
}

func NewAccountDirectory(defaultAgeDays int) *AccountDirectory {
	return &AccountDirectory{
		accounts:       make(map[string]ports.AccountProfile),
		defaultAgeDays: defaultAgeDays,
		nowFn:          func() time.Time { return time.Now().UTC() },
	}
}

func (d *AccountDirectory) Register(profile ports.AccountProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[profile.AccountID] = profile
}

func (d *AccountDirectory) GetAccount(_ context.Context, accountID string) (ports.AccountProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if profile, ok := d.accounts[accountID]; ok {
		return profile, nil
	}
	return ports.AccountProfile{
		AccountID: accountID,
		CreatedAt: d.nowFn().AddDate(0, 0, -d.defaultAgeDays),
	}, nil
}

// RoleResolver maps (entityType, entityID, role) tuples registered up front.
// Unregistered tuples fail with ErrRecipientResolution, which the split
// applier treats as a dropped recipient.
type RoleResolver struct {
	mu       sync.RWMutex
	bindings map[string]string
}

func NewRoleResolver() *RoleResolver {
	return &RoleResolver{bindings: make(map[string]string)}
}

func roleKey(entityType domain.EntityType, entityID string, role domain.RecipientRole) string {
	return fmt.Sprintf("%s/%s/%s", entityType, entityID, role)
}

func (r *RoleResolver) Bind(entityType domain.EntityType, entityID string, role domain.RecipientRole, accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[roleKey(entityType, entityID, role)] = accountID
}

func (r *RoleResolver) ResolveRole(_ context.Context, entityType domain.EntityType, entityID string, role domain.RecipientRole) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	accountID, ok := r.bindings[roleKey(entityType, entityID, role)]
	if !ok {
		return "", fmt.Errorf("no %s bound for %s %s: %w", role, entityType, entityID, domain.ErrRecipientResolution)
	}
	return accountID, nil
}

// DestinationReader returns a synthetic destination per account unless one
// has been registered, so the processor path works without external setup.
type DestinationReader struct {
	mu           sync.RWMutex
	destinations map[string]ports.PayoutDestination
	missing      map[string]bool
}

func NewDestinationReader() *DestinationReader {
	return &DestinationReader{
		destinations: make(map[string]ports.PayoutDestination),
		missing:      make(map[string]bool),
	}
}

func (d *DestinationReader) Register(dest ports.PayoutDestination) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destinations[dest.AccountID] = dest
}

// MarkMissing makes lookups for the account fail, for exercising the
// destination-unavailable path.
func (d *DestinationReader) MarkMissing(accountID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.missing[accountID] = true
}

func (d *DestinationReader) GetPayoutDestination(_ context.Context, accountID string) (ports.PayoutDestination, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.missing[accountID] {
		return ports.PayoutDestination{}, fmt.Errorf("no payout destination for account %s: %w", accountID, domain.ErrNotFound)
	}
	if dest, ok := d.destinations[accountID]; ok {
		return dest, nil
	}
	return ports.PayoutDestination{
		AccountID:         accountID,
		Provider:          "memory",
		ExternalAccountID: "acct_" + accountID,
	}, nil
}

type DisputeStats struct {
	mu       sync.Mutex
	disputes []time.Time
}

func NewDisputeStats() *DisputeStats {
	return &DisputeStats{}
}

func (d *DisputeStats) RecordDispute(_ context.Context, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disputes = append(d.disputes, at)
	return nil
}

func (d *DisputeStats) CountSince(_ context.Context, since time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, at := range d.disputes {
		if !at.Before(since) {
			count++
		}
	}
	return count, nil
}

type ProcessingLock struct {
	mu    sync.Mutex
	held  map[string]time.Time
	nowFn func() time.Time
}

func NewProcessingLock() *ProcessingLock {
	return &ProcessingLock{
		held:  make(map[string]time.Time),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (l *ProcessingLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFn()
	if expiry, ok := l.held[key]; ok && expiry.After(now) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *ProcessingLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
