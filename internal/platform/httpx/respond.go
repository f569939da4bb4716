// Package httpx provides JSON response utilities shared by all API handlers.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/manoam/stocks-backend/internal/shared"
)

// Envelope is the response shape consumed by the management console.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PageMeta mirrors the pagination block expected by list consumers.
type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListEnvelope is the response shape for paginated listings.
type ListEnvelope struct {
	Success    bool     `json:"success"`
	Data       any      `json:"data"`
	Pagination PageMeta `json:"pagination"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK wraps data in the success envelope.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// OKMessage wraps data plus a human readable message.
func OKMessage(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Message: message})
}

// Created responds with 201 and the created entity.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated responds with a list plus pagination metadata.
func Paginated(w http.ResponseWriter, data any, page shared.Pagination) {
	JSON(w, http.StatusOK, ListEnvelope{
		Success: true,
		Data:    data,
		Pagination: PageMeta{
			Page:       page.Page,
			Limit:      page.PerPage,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

// Error responds with a failure envelope and the given status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Error: message})
}

// DecodeJSON decodes the JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
