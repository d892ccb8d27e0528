package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

type transferRequestBody struct {
	AmountMinorUnits  int64             `json:"amount_minor_units"`
	Currency          string            `json:"currency"`
	Provider          string            `json:"provider"`
	ExternalAccountID string            `json:"external_account_id"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type transferResponseBody struct {
	TransferID string `json:"transfer_id"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

// HTTPTransferClient submits transfers to the payment processor's REST API.
// Network failures and 5xx responses come back as retryable TransferErrors;
// a 4xx means the processor rejected the transfer outright.
type HTTPTransferClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPTransferClient(baseURL, apiKey string, timeout time.Duration) *HTTPTransferClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPTransferClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPTransferClient) CreateTransfer(ctx context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	body, err := json.Marshal(transferRequestBody{
		AmountMinorUnits:  req.AmountMinorUnits,
		Currency:          req.Currency,
		Provider:          req.Destination.Provider,
		ExternalAccountID: req.Destination.ExternalAccountID,
		Metadata:          req.Metadata,
	})
	if err != nil {
		return ports.TransferResult{}, fmt.Errorf("marshal transfer request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return ports.TransferResult{}, fmt.Errorf("build transfer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return ports.TransferResult{}, &domain.TransferError{
			Code:      "network_error",
			Message:   err.Error(),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	var parsed transferResponseBody
	if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr != nil && resp.StatusCode < 300 {
		return ports.TransferResult{}, &domain.TransferError{
			Code:      "malformed_response",
			Message:   decodeErr.Error(),
			Retryable: true,
		}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if parsed.TransferID == "" {
			return ports.TransferResult{}, &domain.TransferError{
				Code:      "missing_transfer_id",
				Message:   "processor accepted transfer without an identifier",
				Retryable: false,
			}
		}
		return ports.TransferResult{TransferID: parsed.TransferID}, nil
	case resp.StatusCode >= 500:
		return ports.TransferResult{}, &domain.TransferError{
			Code:      nonEmpty(parsed.ErrorCode, "processor_unavailable"),
			Message:   nonEmpty(parsed.Message, resp.Status),
			Retryable: true,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return ports.TransferResult{}, &domain.TransferError{
			Code:      "rate_limited",
			Message:   nonEmpty(parsed.Message, resp.Status),
			Retryable: true,
		}
	default:
		return ports.TransferResult{}, &domain.TransferError{
			Code:      nonEmpty(parsed.ErrorCode, "transfer_rejected"),
			Message:   nonEmpty(parsed.Message, resp.Status),
			Retryable: false,
		}
	}
}

func nonEmpty(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
