package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
)

func (h *Handler) createSplitRule(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.CreateSplitRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	recipients := make([]domain.SplitRecipient, 0, len(req.Recipients))
	for _, recipient := range req.Recipients {
		recipients = append(recipients, domain.SplitRecipient{
			RecipientID: strings.TrimSpace(recipient.RecipientID),
			Role:        domain.RecipientRole(strings.ToLower(strings.TrimSpace(recipient.Role))),
			Percent:     recipient.Percent,
		})
	}
	rule, err := h.service.CreateSplitRule(r.Context(), actor, application.CreateSplitRuleInput{
		OwnerID:    strings.TrimSpace(req.OwnerID),
		Name:       strings.TrimSpace(req.Name),
		EntityType: domain.EntityType(strings.ToLower(strings.TrimSpace(req.EntityType))),
		EntityID:   strings.TrimSpace(req.EntityID),
		Recipients: recipients,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", rule)
}

func (h *Handler) getSplitRule(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	rule, err := h.service.GetSplitRule(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", rule)
}

func (h *Handler) listSplitRules(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	out, err := h.service.ListSplitRules(r.Context(), actor,
		strings.TrimSpace(r.URL.Query().Get("owner_id")),
		parseIntOrDefault(r.URL.Query().Get("limit"), 20),
		parseIntOrDefault(r.URL.Query().Get("offset"), 0),
	)
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

func (h *Handler) resolveSplits(w http.ResponseWriter, r *http.Request) {
	entityType := domain.EntityType(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("entity_type"))))
	entityID := strings.TrimSpace(r.URL.Query().Get("entity_id"))
	recipients, err := h.service.GetSplitRules(r.Context(), entityType, entityID)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"entity_type": entityType,
		"entity_id":   entityID,
		"recipients":  recipients,
	})
}

func (h *Handler) applySplits(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if actor.Role != "admin" && actor.Role != "system" {
		writeError(w, http.StatusForbidden, "forbidden", "split application is restricted to the payment capture flow", requestIDFromContext(r.Context()))
		return
	}
	var req contracts.ApplySplitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	result, err := h.service.ApplySplits(r.Context(), actor, application.ApplySplitsInput{
		PurchaseID:       strings.TrimSpace(req.PurchaseID),
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         strings.ToUpper(strings.TrimSpace(req.Currency)),
		EntityType:       domain.EntityType(strings.ToLower(strings.TrimSpace(req.EntityType))),
		EntityID:         strings.TrimSpace(req.EntityID),
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", result)
}
