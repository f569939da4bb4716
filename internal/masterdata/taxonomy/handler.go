package taxonomy

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/manoam/stocks-backend/internal/platform/httpx"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// MountRoutes registers taxonomy endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/groups", func(r chi.Router) {
		r.Get("/", h.listGroups)
		r.Post("/", h.createGroup)
		r.Put("/{id}", h.updateGroup)
		r.Delete("/{id}", h.deleteGroup)
	})
	r.Route("/assemblies", func(r chi.Router) {
		r.Get("/", h.listAssemblies)
		r.Post("/", h.createAssembly)
		r.Put("/{id}", h.updateAssembly)
		r.Delete("/{id}", h.deleteAssembly)
	})
	r.Route("/assembly-types", func(r chi.Router) {
		r.Get("/", h.listTypes)
		r.Post("/", h.createType)
		r.Delete("/{id}", h.deleteType)
	})
}

type nodeRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description string  `json:"description" validate:"max=1000"`
	TypeIDs     []int64 `json:"typeIds" validate:"dive,gt=0"`
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, groups)
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	group, err := h.service.CreateGroup(r.Context(), ProductGroup{Name: req.Name, Description: req.Description})
	if err != nil {
		respondTaxonomyError(w, err)
		return
	}
	httpx.Created(w, group)
}

func (h *Handler) updateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.service.UpdateGroup(r.Context(), id, ProductGroup{Name: req.Name, Description: req.Description}); err != nil {
		respondTaxonomyError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "group updated")
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteGroup(r.Context(), id); err != nil {
		respondTaxonomyError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "group deleted, products detached")
}

func (h *Handler) listAssemblies(w http.ResponseWriter, r *http.Request) {
	assemblies, err := h.service.ListAssemblies(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, assemblies)
}

func (h *Handler) createAssembly(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	assembly, err := h.service.CreateAssembly(r.Context(), Assembly{Name: req.Name, Description: req.Description}, req.TypeIDs)
	if err != nil {
		respondTaxonomyError(w, err)
		return
	}
	httpx.Created(w, assembly)
}

func (h *Handler) updateAssembly(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.service.UpdateAssembly(r.Context(), id, Assembly{Name: req.Name, Description: req.Description}, req.TypeIDs); err != nil {
		respondTaxonomyError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "assembly updated")
}

func (h *Handler) deleteAssembly(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAssembly(r.Context(), id); err != nil {
		respondTaxonomyError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "assembly deleted, products detached")
}

func (h *Handler) listTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListAssemblyTypes(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, types)
}

func (h *Handler) createType(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	t, err := h.service.CreateAssemblyType(r.Context(), AssemblyType{Name: req.Name})
	if err != nil {
		respondTaxonomyError(w, err)
		return
	}
	httpx.Created(w, t)
}

func (h *Handler) deleteType(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAssemblyType(r.Context(), id); err != nil {
		respondTaxonomyError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "assembly type deleted")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (nodeRequest, bool) {
	var req nodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return nodeRequest{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return nodeRequest{}, false
	}
	return req, true
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func respondTaxonomyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateName):
		httpx.Error(w, http.StatusConflict, err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
