package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/application"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Post("/ledger/entries", handler.createEntry)
			r.Post("/ledger/transfers", handler.createPairedEntries)
			r.Get("/ledger/pairs/{correlationId}", handler.getPairedEntries)
			r.Get("/ledger/accounts/{id}/balance", handler.getAccountBalance)
			r.Get("/ledger/accounts/{id}/transactions", handler.listAccountTransactions)
			r.Get("/ledger/validate", handler.validateGlobalBalance)

			r.Post("/splits/rules", handler.createSplitRule)
			r.Get("/splits/rules", handler.listSplitRules)
			r.Get("/splits/rules/{id}", handler.getSplitRule)
			r.Get("/splits/resolve", handler.resolveSplits)
			r.Post("/splits/apply", handler.applySplits)

			r.Post("/payouts", handler.queuePayout)
			r.Post("/payouts/instant", handler.requestInstantPayout)
			r.Get("/payouts", handler.listPayouts)
			r.Get("/payouts/{id}", handler.getPayout)
			r.Post("/payouts/{id}/cancel", handler.cancelPayout)
			r.Post("/payouts/{id}/process", handler.processPayout)
			r.Post("/payouts/process", handler.processDuePayouts)

			r.Post("/disputes", handler.recordDispute)
		})
	})
	return r
}
