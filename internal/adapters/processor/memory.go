package processor

import (
	"context"
	"fmt"
	"sync"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

// MemoryTransferClient fakes the payment processor. Failures can be scripted
// per call so retry behavior is observable.
type MemoryTransferClient struct {
	mu        sync.Mutex
	calls     int
	failures  []*domain.TransferError
	transfers []ports.TransferRequest
}

func NewMemoryTransferClient() *MemoryTransferClient {
	return &MemoryTransferClient{}
}

// FailNext queues errors returned by upcoming calls in order. A nil entry
// means that call succeeds.
func (c *MemoryTransferClient) FailNext(errs ...*domain.TransferError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, errs...)
}

func (c *MemoryTransferClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *MemoryTransferClient) Transfers() []ports.TransferRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ports.TransferRequest, len(c.transfers))
	copy(out, c.transfers)
	return out
}

func (c *MemoryTransferClient) CreateTransfer(_ context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if len(c.failures) > 0 {
		next := c.failures[0]
		c.failures = c.failures[1:]
		if next != nil {
			return ports.TransferResult{}, next
		}
	}
	c.transfers = append(c.transfers, req)
	return ports.TransferResult{TransferID: fmt.Sprintf("tr_%06d", c.calls)}, nil
}
