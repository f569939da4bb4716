package orders

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/manoam/stocks-backend/internal/inventory"
	"github.com/manoam/stocks-backend/internal/platform/httpx"
	"github.com/manoam/stocks-backend/internal/shared"
)

// Handler exposes the order API.
type Handler struct {
	service  *Service
	idem     shared.IdempotencyGuard
	validate *validator.Validate
}

// NewHandler constructs Handler. A nil guard disables idempotency keys.
func NewHandler(service *Service, idem shared.IdempotencyGuard) *Handler {
	return &Handler{service: service, idem: idem, validate: validator.New()}
}

// MountRoutes registers order endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Post("/{id}/receive", h.receive)
		r.Post("/{id}/cancel", h.cancel)
	})
}

type createOrderRequest struct {
	ProductID         int64  `json:"productId" validate:"required,gt=0"`
	SupplierID        int64  `json:"supplierId" validate:"required,gt=0"`
	Quantity          int    `json:"quantity" validate:"required,gt=0"`
	OrderDate         string `json:"orderDate"`
	ExpectedDate      string `json:"expectedDate"`
	DestinationSiteID *int64 `json:"destinationSiteId"`
	Responsible       string `json:"responsible" validate:"max=120"`
	SupplierRef       string `json:"supplierRef" validate:"max=120"`
	Comment           string `json:"comment" validate:"max=1000"`
}

type receiveOrderRequest struct {
	ReceivedDate      string `json:"receivedDate"`
	ReceivedQty       int    `json:"receivedQty" validate:"required,gt=0"`
	Condition         string `json:"condition" validate:"required,oneof=NEW USED"`
	Comment           string `json:"comment" validate:"max=1000"`
	DestinationSiteID *int64 `json:"destinationSiteId"`
	Operator          string `json:"operator" validate:"max=120"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	input := CreateInput{
		ProductID:         req.ProductID,
		SupplierID:        req.SupplierID,
		Quantity:          req.Quantity,
		DestinationSiteID: req.DestinationSiteID,
		Responsible:       req.Responsible,
		SupplierRef:       req.SupplierRef,
		Comment:           req.Comment,
	}
	if req.OrderDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.OrderDate)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "orderDate must be RFC 3339")
			return
		}
		input.OrderDate = parsed
	}
	if req.ExpectedDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpectedDate)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "expectedDate must be RFC 3339")
			return
		}
		input.ExpectedDate = &parsed
	}

	order, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondOrderError(w, err)
		return
	}
	httpx.Created(w, order)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req receiveOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	input := ReceiveInput{
		ReceivedQty:       req.ReceivedQty,
		Condition:         inventory.Condition(req.Condition),
		Comment:           req.Comment,
		DestinationSiteID: req.DestinationSiteID,
		Operator:          req.Operator,
	}
	if req.ReceivedDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.ReceivedDate)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "receivedDate must be RFC 3339")
			return
		}
		input.ReceivedDate = parsed
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "orders"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Error(w, http.StatusConflict, err.Error())
				return
			}
			httpx.RespondError(w, err)
			return
		}
	}

	order, err := h.service.Receive(r.Context(), id, input)
	if err != nil {
		if idemKey != "" && h.idem != nil {
			// Release the key so the caller can retry.
			_ = h.idem.Delete(r.Context(), idemKey)
		}
		respondOrderError(w, err)
		return
	}
	httpx.OKMessage(w, order, "order received")
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		respondOrderError(w, err)
		return
	}
	httpx.OKMessage(w, order, "order cancelled")
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondOrderError(w, err)
		return
	}
	httpx.OK(w, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, limit := shared.ParsePageQuery(query)

	filter := Filter{
		Status: Status(query.Get("status")),
		Page:   page, Limit: limit,
	}
	if v := query.Get("supplierId"); v != "" {
		filter.SupplierID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := query.Get("productId"); v != "" {
		filter.ProductID, _ = strconv.ParseInt(v, 10, 64)
	}

	result, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Paginated(w, result, shared.NewPagination(page, limit, total))
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}

func respondOrderError(w http.ResponseWriter, err error) {
	var insufficient *inventory.InsufficientStockError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrDestinationRequired):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficient):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, inventory.ErrSiteNotStorage), errors.Is(err, inventory.ErrSiteNotFound):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, inventory.ErrInvalidCondition), errors.Is(err, inventory.ErrInvalidQuantity):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
