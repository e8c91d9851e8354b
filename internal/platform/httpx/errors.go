// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

// ProblemFielder is implemented by errors that carry extra problem members.
type ProblemFielder interface {
	ProblemFields() map[string]any
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var meta map[string]any
	var fielder ProblemFielder
	if errors.As(err, &fielder) {
		meta = fielder.ProblemFields()
	}
	switch {
	case errors.Is(err, shared.ErrUnprocessable):
		ProblemWithMeta(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error(), meta)
	case errors.Is(err, shared.ErrNotFound):
		ProblemWithMeta(w, http.StatusNotFound, "Not Found", err.Error(), meta)
	case errors.Is(err, shared.ErrDuplicate):
		ProblemWithMeta(w, http.StatusConflict, "Duplicate", err.Error(), meta)
	case errors.Is(err, shared.ErrConflict):
		ProblemWithMeta(w, http.StatusConflict, "Conflict", err.Error(), meta)
	case errors.Is(err, shared.ErrValidation):
		ProblemWithMeta(w, http.StatusBadRequest, "Validation Failed", err.Error(), meta)
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		ProblemWithMeta(w, http.StatusInternalServerError, "Internal Error", "", meta)
	}
}

// StatusFor reports the status RespondError would write for err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrUnprocessable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrDuplicate), errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
