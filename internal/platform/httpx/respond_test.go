package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manoam/stocks-backend/internal/shared"
)

func TestOKEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	OK(rr, map[string]string{"name": "Main Warehouse"})

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, true, body["success"])
	require.Equal(t, "Main Warehouse", body["data"].(map[string]any)["name"])
	require.NotContains(t, body, "error")
}

func TestCreatedStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	Created(rr, map[string]int{"id": 7})
	require.Equal(t, http.StatusCreated, rr.Code)
}

func TestPaginatedEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	Paginated(rr, []int{1, 2, 3}, shared.NewPagination(2, 3, 8))

	var body struct {
		Success    bool     `json:"success"`
		Data       []int    `json:"data"`
		Pagination PageMeta `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, []int{1, 2, 3}, body.Data)
	require.Equal(t, PageMeta{Page: 2, Limit: 3, Total: 8, TotalPages: 3}, body.Pagination)
}

func TestErrorEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	Error(rr, http.StatusBadRequest, "quantity must be positive")

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "quantity must be positive", body["error"])
}

func TestRespondErrorMapsSharedErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("site: %w", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("order: %w", shared.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("supplier: %w", shared.ErrConflict), http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code, "error %v", tc.err)
	}
}
