package products

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

// MountRoutes registers product and supplier-link endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.delete)
			r.Route("/suppliers", func(r chi.Router) {
				r.Get("/", h.listLinks)
				r.Post("/", h.link)
				r.Put("/{supplierId}", h.updateLink)
				r.Delete("/{supplierId}", h.unlink)
				r.Post("/{supplierId}/primary", h.setPrimary)
			})
		})
	})
}

type productRequest struct {
	Reference   string `json:"reference" validate:"max=50"`
	Description string `json:"description" validate:"max=1000"`
	QtyPerUnit  int    `json:"qtyPerUnit" validate:"required,gte=1"`
	SupplyRisk  string `json:"supplyRisk" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Location    string `json:"location" validate:"max=200"`
	GroupID     *int64 `json:"groupId"`
	AssemblyID  *int64 `json:"assemblyId"`
	Comment     string `json:"comment" validate:"max=1000"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
}

func (r productRequest) toProduct() Product {
	return Product{
		Reference: r.Reference, Description: r.Description, QtyPerUnit: r.QtyPerUnit,
		SupplyRisk: SupplyRisk(r.SupplyRisk), Location: r.Location,
		GroupID: r.GroupID, AssemblyID: r.AssemblyID,
		Comment: r.Comment, ImageURL: r.ImageURL,
	}
}

type linkRequest struct {
	SupplierID   int64    `json:"supplierId" validate:"required,gt=0"`
	SupplierRef  string   `json:"supplierRef" validate:"max=120"`
	UnitPrice    *float64 `json:"unitPrice" validate:"omitempty,gte=0"`
	LeadTime     *int     `json:"leadTime" validate:"omitempty,gte=0"`
	ProductURL   string   `json:"productUrl" validate:"omitempty,url"`
	ShippingCost *float64 `json:"shippingCost" validate:"omitempty,gte=0"`
	IsPrimary    bool     `json:"isPrimary"`
}

func (r linkRequest) toInput() LinkInput {
	return LinkInput{
		SupplierRef: r.SupplierRef, UnitPrice: r.UnitPrice, LeadTime: r.LeadTime,
		ProductURL: r.ProductURL, ShippingCost: r.ShippingCost, IsPrimary: r.IsPrimary,
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
	if v := query.Get("groupId"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.GroupID = &parsed
		}
	}
	if v := query.Get("assemblyId"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.AssemblyID = &parsed
		}
	}
	if v := query.Get("supplierId"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.SupplierID = &parsed
		}
	}

	result, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Product{}
	}
	httpx.Paginated(w, result, internalshared.NewPagination(page, limit, total))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondProductError(w, err)
		return
	}
	httpx.OK(w, product)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.service.Create(r.Context(), req.toProduct())
	if err != nil {
		respondProductError(w, err)
		return
	}
	httpx.Created(w, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.service.Update(r.Context(), id, req.toProduct())
	if err != nil {
		respondProductError(w, err)
		return
	}
	httpx.OKMessage(w, product, "product updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondProductError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "product deleted")
}

func (h *Handler) listLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondProductError(w, err)
		return
	}
	httpx.OK(w, product.Suppliers)
}

func (h *Handler) link(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	var req linkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	link, err := h.service.LinkSupplier(r.Context(), id, req.SupplierID, req.toInput())
	if err != nil {
		respondProductError(w, err)
		return
	}
	httpx.Created(w, link)
}

func (h *Handler) updateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	supplierID, ok := h.paramID(w, r, "supplierId")
	if !ok {
		return
	}
	var req linkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	link, err := h.service.UpdateLink(r.Context(), id, supplierID, req.toInput())
	if err != nil {
		respondProductError(w, err)
		return
	}
	httpx.OKMessage(w, link, "supplier link updated")
}

func (h *Handler) unlink(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	supplierID, ok := h.paramID(w, r, "supplierId")
	if !ok {
		return
	}
	if err := h.service.UnlinkSupplier(r.Context(), id, supplierID); err != nil {
		respondProductError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "supplier unlinked")
}

func (h *Handler) setPrimary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	supplierID, ok := h.paramID(w, r, "supplierId")
	if !ok {
		return
	}
	link, err := h.service.SetPrimarySupplier(r.Context(), id, supplierID)
	if err != nil {
		respondProductError(w, err)
		return
	}
	httpx.OKMessage(w, link, "primary supplier updated")
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func respondProductError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLinkNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrProductInUse), errors.Is(err, ErrDuplicateReference), errors.Is(err, ErrLinkExists):
		httpx.Error(w, http.StatusConflict, err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
