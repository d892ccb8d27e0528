package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
)

func (h *Handler) queuePayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.QueuePayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	payout, err := h.service.QueuePayout(r.Context(), actor, application.QueuePayoutInput{
		AccountID:        strings.TrimSpace(req.AccountID),
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         strings.ToUpper(strings.TrimSpace(req.Currency)),
		PayoutType:       domain.PayoutType(strings.ToLower(strings.TrimSpace(req.PayoutType))),
		ScheduledFor:     req.ScheduledFor,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", payout)
}

func (h *Handler) requestInstantPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.InstantPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	payout, err := h.service.RequestInstantPayout(r.Context(), actor, strings.TrimSpace(req.AccountID), req.AmountMinorUnits)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", payout)
}

func (h *Handler) listPayouts(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	query := ports.PayoutQuery{
		AccountID: strings.TrimSpace(r.URL.Query().Get("account_id")),
		Status:    domain.PayoutStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))),
		Limit:     parseIntOrDefault(r.URL.Query().Get("limit"), 20),
		Offset:    parseIntOrDefault(r.URL.Query().Get("offset"), 0),
	}
	out, err := h.service.ListPayouts(r.Context(), actor, query)
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

func (h *Handler) getPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	payout, err := h.service.GetPayout(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}

func (h *Handler) cancelPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	payout, err := h.service.CancelPayout(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}

func (h *Handler) processPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if actor.Role != "admin" {
		writeError(w, http.StatusForbidden, "forbidden", "manual processing is restricted to operators", requestIDFromContext(r.Context()))
		return
	}
	payoutID := chi.URLParam(r, "id")
	if err := h.service.ProcessOne(r.Context(), payoutID); err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	payout, err := h.service.GetPayout(r.Context(), actor, payoutID)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}

func (h *Handler) processDuePayouts(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if actor.Role != "admin" {
		writeError(w, http.StatusForbidden, "forbidden", "batch processing is restricted to operators", requestIDFromContext(r.Context()))
		return
	}
	result, err := h.service.ProcessDuePayouts(r.Context())
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", result)
}

func (h *Handler) recordDispute(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if actor.Role != "admin" && actor.Role != "system" {
		writeError(w, http.StatusForbidden, "forbidden", "dispute ingestion is restricted to the processor feed", requestIDFromContext(r.Context()))
		return
	}
	var req contracts.RecordDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	if err := h.service.RecordDispute(r.Context(), actor); err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusAccepted, "dispute recorded", nil)
}
