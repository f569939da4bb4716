package inventory

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/manoam/stocks-backend/internal/platform/httpx"
	"github.com/manoam/stocks-backend/internal/shared"
)

// Handler exposes the movement API.
type Handler struct {
	service  *Service
	idem     shared.IdempotencyGuard
	validate *validator.Validate
}

// NewHandler constructs Handler. A nil guard disables idempotency keys.
func NewHandler(service *Service, idem shared.IdempotencyGuard) *Handler {
	return &Handler{service: service, idem: idem, validate: validator.New()}
}

// MountRoutes registers movement endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/movements", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
	})
	r.Get("/stocks/available", h.available)
}

type movementRequest struct {
	ProductID    int64  `json:"productId" validate:"required,gt=0"`
	Type         string `json:"type" validate:"required,oneof=IN OUT TRANSFER"`
	SourceSiteID *int64 `json:"sourceSiteId"`
	TargetSiteID *int64 `json:"targetSiteId"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
	Condition    string `json:"condition" validate:"required,oneof=NEW USED"`
	MovementDate string `json:"movementDate"`
	Operator     string `json:"operator" validate:"max=120"`
	Comment      string `json:"comment" validate:"max=1000"`
	Ref          string `json:"ref" validate:"max=120"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	input := MovementInput{
		ProductID:    req.ProductID,
		Type:         MovementType(req.Type),
		SourceSiteID: req.SourceSiteID,
		TargetSiteID: req.TargetSiteID,
		Quantity:     req.Quantity,
		Condition:    Condition(req.Condition),
		Operator:     req.Operator,
		Comment:      req.Comment,
		Ref:          req.Ref,
	}
	if req.MovementDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.MovementDate)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "movementDate must be RFC 3339")
			return
		}
		input.MovementDate = parsed
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "movements"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Error(w, http.StatusConflict, err.Error())
				return
			}
			httpx.RespondError(w, err)
			return
		}
	}

	movement, err := h.service.CreateMovement(r.Context(), input)
	if err != nil {
		if idemKey != "" && h.idem != nil {
			// Release the key so the caller can retry.
			_ = h.idem.Delete(r.Context(), idemKey)
		}
		respondMovementError(w, err)
		return
	}
	httpx.Created(w, movement)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, limit := shared.ParsePageQuery(query)

	filter := MovementFilter{
		Type: MovementType(query.Get("type")),
		Page: page, Limit: limit,
	}
	if v := query.Get("siteId"); v != "" {
		filter.SiteID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := query.Get("productId"); v != "" {
		filter.ProductID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := query.Get("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "from must be RFC 3339")
			return
		}
		filter.From = parsed
	}
	if v := query.Get("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "to must be RFC 3339")
			return
		}
		filter.To = parsed
	}

	movements, total, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Paginated(w, movements, shared.NewPagination(page, limit, total))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid movement id")
		return
	}
	movement, err := h.service.GetMovement(r.Context(), id)
	if err != nil {
		respondMovementError(w, err)
		return
	}
	httpx.OK(w, movement)
}

func (h *Handler) available(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	productID, _ := strconv.ParseInt(query.Get("productId"), 10, 64)
	siteID, _ := strconv.ParseInt(query.Get("siteId"), 10, 64)
	condition := Condition(query.Get("condition"))

	rows, err := h.service.AvailableStock(r.Context(), productID, siteID, condition)
	if err != nil {
		respondMovementError(w, err)
		return
	}
	httpx.OK(w, rows)
}

func respondMovementError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		httpx.Error(w, http.StatusConflict, insufficient.Error())
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidCondition),
		errors.Is(err, ErrSourceRequired),
		errors.Is(err, ErrTargetRequired),
		errors.Is(err, ErrSameSite):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSiteNotStorage), errors.Is(err, ErrSiteNotFound):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrMovementNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
