package utils

import (
	"encoding/json"
	"net/http"
	"time"
)

// Envelope is the standard response shape for every API route.
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     interface{} `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// Pagination describes a paged list response.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

func NewPagination(total int64, page, limit int) Pagination {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

// Success writes a success envelope with the given status code.
func Success(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Error writes an error envelope with the given status code. detail carries
// the structured error object (may be nil).
func Error(w http.ResponseWriter, status int, message string, detail interface{}) {
	writeJSON(w, status, Envelope{
		Success:   false,
		Message:   message,
		Error:     detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ParsePage reads page/limit query params with sane defaults and caps.
func ParsePage(r *http.Request, defaultLimit int) (page, limit int) {
	page, limit = 1, defaultLimit
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := atoiPositive(v); err == nil {
			page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := atoiPositive(v); err == nil {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}
	return page, limit
}
