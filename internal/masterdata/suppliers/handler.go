package suppliers

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

// MountRoutes registers supplier endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type supplierRequest struct {
	Name       string   `json:"name" validate:"required,max=200"`
	Contact    string   `json:"contact" validate:"max=200"`
	Email      string   `json:"email" validate:"omitempty,email"`
	Phone      string   `json:"phone" validate:"max=50"`
	Website    string   `json:"website" validate:"omitempty,url"`
	Address    string   `json:"address" validate:"max=500"`
	PostalCode string   `json:"postalCode" validate:"max=20"`
	City       string   `json:"city" validate:"max=120"`
	Country    string   `json:"country" validate:"max=120"`
	Latitude   *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude  *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Comment    string   `json:"comment" validate:"max=1000"`
}

func (r supplierRequest) toSupplier() Supplier {
	return Supplier{
		Name: r.Name, Contact: r.Contact, Email: r.Email, Phone: r.Phone, Website: r.Website,
		Address: r.Address, PostalCode: r.PostalCode, City: r.City, Country: r.Country,
		Latitude: r.Latitude, Longitude: r.Longitude, Comment: r.Comment,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, limit := internalshared.ParsePageQuery(query)

	filters := shared.ListFilters{
		Page: page, Limit: limit,
		Search:  query.Get("search"),
		SortBy:  query.Get("sort"),
		SortDir: query.Get("dir"),
	}

	result, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Supplier{}
	}
	httpx.Paginated(w, result, internalshared.NewPagination(page, limit, total))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	supplier, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondSupplierError(w, err)
		return
	}
	httpx.OK(w, supplier)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	supplier, err := h.service.Create(r.Context(), req.toSupplier())
	if err != nil {
		respondSupplierError(w, err)
		return
	}
	httpx.Created(w, supplier)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	supplier, err := h.service.Update(r.Context(), id, req.toSupplier())
	if err != nil {
		respondSupplierError(w, err)
		return
	}
	httpx.OKMessage(w, supplier, "supplier updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondSupplierError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "supplier deleted")
}

func respondSupplierError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSupplierInUse):
		httpx.Error(w, http.StatusConflict, err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
