package unit

import (
	"context"
	"testing"
	"time"

	eventadapter "github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/adapters/events"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/adapters/processor"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
)

type fixture struct {
	svc          *application.Service
	repos        *memory.Repositories
	accounts     *memory.AccountDirectory
	roles        *memory.RoleResolver
	destinations *memory.DestinationReader
	disputes     *memory.DisputeStats
	transfers    *processor.MemoryTransferClient
	domainEvents *eventadapter.MemoryDomainPublisher
	analytics    *eventadapter.MemoryAnalyticsPublisher
}

func newFixture() *fixture {
	repos := memory.NewRepositories()
	accounts := memory.NewAccountDirectory(365)
	roles := memory.NewRoleResolver()
	destinations := memory.NewDestinationReader()
	disputes := memory.NewDisputeStats()
	transfers := processor.NewMemoryTransferClient()
	domainEvents := eventadapter.NewMemoryDomainPublisher()
	analytics := eventadapter.NewMemoryAnalyticsPublisher()
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			TransferRetryBackoff: time.Millisecond,
		},
		Ledger:       repos.Ledger,
		SplitRules:   repos.SplitRules,
		Payouts:      repos.Payouts,
		Idempotency:  repos.Idempotency,
		EventDedup:   repos.EventDedup,
		Outbox:       repos.Outbox,
		Accounts:     accounts,
		Roles:        roles,
		Destinations: destinations,
		Transfers:    transfers,
		Disputes:     disputes,
		BatchLock:    memory.NewProcessingLock(),
		DomainEvents: domainEvents,
		Analytics:    analytics,
		DLQ:          eventadapter.NewLoggingDLQPublisher(),
	})
	return &fixture{
		svc:          svc,
		repos:        repos,
		accounts:     accounts,
		roles:        roles,
		destinations: destinations,
		disputes:     disputes,
		transfers:    transfers,
		domainEvents: domainEvents,
		analytics:    analytics,
	}
}

// creditAccount funds an account through a charge pair so balance checks in
// the payout path pass.
func (f *fixture) creditAccount(t *testing.T, accountID string, amountMinorUnits int64) {
	t.Helper()
	_, err := f.svc.CreatePairedEntries(context.Background(), application.PairedEntriesInput{
		DebitAccountID:   "sales-clearing",
		CreditAccountID:  accountID,
		AmountMinorUnits: amountMinorUnits,
		EventSource:      domain.EventSourceCharge,
	})
	if err != nil {
		t.Fatalf("creditAccount %s: %v", accountID, err)
	}
}

func adminActor() application.Actor {
	return application.Actor{SubjectID: "ops", Role: "admin", IdempotencyKey: "idem-ops"}
}

func userActor(subjectID string) application.Actor {
	return application.Actor{SubjectID: subjectID, Role: "user", IdempotencyKey: "idem-" + subjectID}
}
