package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if actor.Role != "admin" && actor.Role != "system" {
		writeError(w, http.StatusForbidden, "forbidden", "ledger writes are restricted to operators", requestIDFromContext(r.Context()))
		return
	}
	var req contracts.CreateLedgerEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	entry, err := h.service.CreateEntry(r.Context(), application.CreateEntryInput{
		AccountID:        strings.TrimSpace(req.AccountID),
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         strings.ToUpper(strings.TrimSpace(req.Currency)),
		Kind:             domain.EntryKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		EventSource:      domain.EventSource(strings.ToLower(strings.TrimSpace(req.EventSource))),
		ReferenceID:      strings.TrimSpace(req.ReferenceID),
		CorrelationID:    strings.TrimSpace(req.CorrelationID),
		Description:      strings.TrimSpace(req.Description),
		Metadata:         req.Metadata,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", entry)
}

func (h *Handler) createPairedEntries(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if actor.Role != "admin" && actor.Role != "system" {
		writeError(w, http.StatusForbidden, "forbidden", "ledger writes are restricted to operators", requestIDFromContext(r.Context()))
		return
	}
	var req contracts.LedgerTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	correlationID, err := h.service.CreatePairedEntries(r.Context(), application.PairedEntriesInput{
		DebitAccountID:   strings.TrimSpace(req.DebitAccountID),
		CreditAccountID:  strings.TrimSpace(req.CreditAccountID),
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         strings.ToUpper(strings.TrimSpace(req.Currency)),
		EventSource:      domain.EventSource(strings.ToLower(strings.TrimSpace(req.EventSource))),
		ReferenceID:      strings.TrimSpace(req.ReferenceID),
		Description:      strings.TrimSpace(req.Description),
		Metadata:         req.Metadata,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", map[string]interface{}{
		"correlation_id": correlationID,
	})
}

func (h *Handler) getPairedEntries(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationId")
	entries, err := h.service.GetPairedEntries(r.Context(), correlationID)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", entries)
}

func (h *Handler) getAccountBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	balance, err := h.service.GetAccountBalance(r.Context(), accountID)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"account_id":          accountID,
		"balance_minor_units": balance,
	})
}

func (h *Handler) listAccountTransactions(w http.ResponseWriter, r *http.Request) {
	query := ports.TransactionQuery{
		AccountID: chi.URLParam(r, "id"),
		Limit:     parseIntOrDefault(r.URL.Query().Get("limit"), 20),
		Offset:    parseIntOrDefault(r.URL.Query().Get("offset"), 0),
	}
	out, err := h.service.GetAccountTransactions(r.Context(), query)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"items":      out.Items,
		"pagination": out.Pagination,
	})
}

func (h *Handler) validateGlobalBalance(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if actor.Role != "admin" {
		writeError(w, http.StatusForbidden, "forbidden", "balance validation is restricted to operators", requestIDFromContext(r.Context()))
		return
	}
	report, err := h.service.ValidateGlobalBalance(r.Context())
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", report)
}

func parseIntOrDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
