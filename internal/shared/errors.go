package shared

import "errors"

// Error kinds shared across modules. Module sentinels wrap one of these so
// transport code can classify failures without importing every module.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or incomplete input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a uniqueness rule was violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrConflict indicates the request cannot apply to current state.
	ErrConflict = errors.New("conflict")
	// ErrUnprocessable indicates a well-formed request that references missing data.
	ErrUnprocessable = errors.New("unprocessable")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
