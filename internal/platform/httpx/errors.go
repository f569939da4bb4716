package httpx

import (
	"errors"
	"net/http"

	"github.com/manoam/stocks-backend/internal/shared"
)

// RespondError maps shared domain errors to HTTP responses. Handlers map
// module specific errors before falling back to this helper.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrConflict):
		Error(w, http.StatusConflict, err.Error())
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
