package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/manoam/stocks-backend/internal/platform/httpx"
)

// Handler exposes the dashboard read API.
type Handler struct {
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes registers dashboard endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/stats", h.stats)
		r.Get("/alerts", h.alerts)
		r.Get("/movements-series", h.series)
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, stats)
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.Alerts(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, alerts)
}

func (h *Handler) series(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.Series(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, series)
}
