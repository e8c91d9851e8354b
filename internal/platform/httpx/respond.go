// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

const maxBodyBytes = 1 << 20

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string         `json:"type,omitempty"`
	Title  string         `json:"title"`
	Status int            `json:"status"`
	Detail string         `json:"detail,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	ProblemWithMeta(w, status, title, detail, nil)
}

// ProblemWithMeta sends a problem response carrying extra members under "meta".
func ProblemWithMeta(w http.ResponseWriter, status int, title, detail string, meta map[string]any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
		Meta:   meta,
	})
}

// DecodeJSON decodes JSON request body into the target struct. Unknown
// fields and trailing data are rejected as validation errors.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: decode body: %v", shared.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must contain a single JSON object", shared.ErrValidation)
	}
	return nil
}

// IDParam parses the chi URL parameter name as a positive int64.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", shared.ErrValidation, name, raw)
	}
	return id, nil
}

// IsClientError reports whether err maps to a 4xx response.
func IsClientError(err error) bool {
	if err == nil {
		return false
	}
	return StatusFor(err) < http.StatusInternalServerError
}
