package audit

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/manoam/stocks-backend/internal/platform/httpx"
)

// Handler exposes the audit trail over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes registers audit endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", h.timeline)
		r.Get("/export", h.export)
	})
}

func parseFilters(r *http.Request) Filters {
	query := r.URL.Query()
	filters := Filters{
		Actor:  query.Get("actor"),
		Entity: query.Get("entity"),
		Action: query.Get("action"),
	}
	filters.Page, _ = strconv.Atoi(query.Get("page"))
	filters.PageSize, _ = strconv.Atoi(query.Get("pageSize"))
	if v := query.Get("from"); v != "" {
		filters.From = parseTime(v)
	}
	if v := query.Get("to"); v != "" {
		filters.To = parseTime(v)
	}
	return filters
}

func parseTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Timeline(r.Context(), parseFilters(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Export(r.Context(), parseFilters(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	filename := "audit-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	buffered := bufio.NewWriterSize(w, 32*1024)
	writer := csv.NewWriter(buffered)
	writer.UseCRLF = true

	_ = writer.Write([]string{"occurred_at", "actor", "action", "entity", "entity_id", "meta"})
	for _, e := range entries {
		meta := ""
		if len(e.Meta) > 0 {
			if raw, err := json.Marshal(e.Meta); err == nil {
				meta = string(raw)
			}
		}
		_ = writer.Write([]string{
			e.OccurredAt.UTC().Format(time.RFC3339),
			e.Actor, e.Action, e.Entity, e.EntityID, meta,
		})
	}
	writer.Flush()
	_ = buffered.Flush()
}
