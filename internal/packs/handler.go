package packs

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/manoam/stocks-backend/internal/inventory"
	"github.com/manoam/stocks-backend/internal/platform/httpx"
)

// Handler exposes the pack API.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// MountRoutes registers pack endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/packs", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/execute", h.execute)
	})
}

type packItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type packRequest struct {
	Name        string            `json:"name" validate:"required,max=120"`
	Type        string            `json:"type" validate:"required,oneof=IN OUT"`
	Description string            `json:"description" validate:"max=1000"`
	Items       []packItemRequest `json:"items" validate:"dive"`
}

func (r packRequest) toPack() Pack {
	items := make([]PackItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, PackItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return Pack{Name: r.Name, Type: PackType(r.Type), Description: r.Description, Items: items}
}

type executeRequest struct {
	Type         string `json:"type" validate:"required,oneof=IN OUT"`
	Multiplier   int    `json:"quantityMultiplier" validate:"required,gte=1"`
	SiteID       int64  `json:"siteId" validate:"required,gt=0"`
	Condition    string `json:"condition" validate:"omitempty,oneof=NEW USED"`
	MovementDate string `json:"movementDate"`
	Operator     string `json:"operator" validate:"max=120"`
	Comment      string `json:"comment" validate:"max=1000"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	packs, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, packs)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	pack, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondPackError(w, err)
		return
	}
	httpx.OK(w, pack)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req packRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	pack, err := h.service.Create(r.Context(), req.toPack())
	if err != nil {
		respondPackError(w, err)
		return
	}
	httpx.Created(w, pack)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req packRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	pack, err := h.service.Update(r.Context(), id, req.toPack())
	if err != nil {
		respondPackError(w, err)
		return
	}
	httpx.OKMessage(w, pack, "pack updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondPackError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "pack deleted")
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req executeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	input := ExecuteInput{
		Type:       PackType(req.Type),
		Multiplier: req.Multiplier,
		SiteID:     req.SiteID,
		Condition:  inventory.Condition(req.Condition),
		Operator:   req.Operator,
		Comment:    req.Comment,
	}
	if req.MovementDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.MovementDate)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "movementDate must be RFC 3339")
			return
		}
		input.MovementDate = parsed
	}

	result, err := h.service.Execute(r.Context(), id, input)
	if err != nil {
		respondPackError(w, err)
		return
	}
	httpx.OKMessage(w, result, "pack executed")
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid pack id")
		return 0, false
	}
	return id, true
}

func respondPackError(w http.ResponseWriter, err error) {
	var insufficient *inventory.InsufficientStockError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidMultiplier):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficient):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, inventory.ErrSiteNotStorage), errors.Is(err, inventory.ErrSiteNotFound):
		httpx.Error(w, http.StatusConflict, err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
