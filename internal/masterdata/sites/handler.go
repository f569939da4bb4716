package sites

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/manoam/stocks-backend/internal/masterdata/shared"
	"github.com/manoam/stocks-backend/internal/platform/httpx"
	internalshared "github.com/manoam/stocks-backend/internal/shared"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// MountRoutes registers site endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sites", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type siteRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Type     string `json:"type" validate:"required,oneof=STORAGE EXIT"`
	Address  string `json:"address" validate:"max=500"`
	IsActive *bool  `json:"isActive"`
}

func (r siteRequest) toSite() Site {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return Site{Name: r.Name, Type: SiteType(r.Type), Address: r.Address, IsActive: active}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, limit := internalshared.ParsePageQuery(query)

	filters := shared.ListFilters{
		Page: page, Limit: limit,
		Search:  query.Get("search"),
		Type:    query.Get("type"),
		SortBy:  query.Get("sort"),
		SortDir: query.Get("dir"),
	}
	if v := query.Get("isActive"); v != "" {
		active := v == "true" || v == "1"
		filters.IsActive = &active
	}

	result, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Site{}
	}
	httpx.Paginated(w, result, internalshared.NewPagination(page, limit, total))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid site id")
		return
	}
	site, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondSiteError(w, err)
		return
	}
	httpx.OK(w, site)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req siteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	site, err := h.service.Create(r.Context(), req.toSite())
	if err != nil {
		respondSiteError(w, err)
		return
	}
	httpx.Created(w, site)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid site id")
		return
	}
	var req siteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	site, err := h.service.Update(r.Context(), id, req.toSite())
	if err != nil {
		respondSiteError(w, err)
		return
	}
	httpx.OKMessage(w, site, "site updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid site id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondSiteError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "site deleted")
}

func respondSiteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSiteInUse), errors.Is(err, ErrDuplicateName):
		httpx.Error(w, http.StatusConflict, err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
