package inventory

import (
	"errors"
	"fmt"

	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

var (
	// ErrNotFound indicates a missing transaction, receipt or log entry.
	ErrNotFound = fmt.Errorf("inventory: %w", shared.ErrNotFound)
	// ErrValidation indicates a malformed request.
	ErrValidation = fmt.Errorf("inventory: %w", shared.ErrValidation)
	// ErrInsufficientStock matches every InsufficientStockError.
	ErrInsufficientStock = fmt.Errorf("inventory: insufficient stock: %w", shared.ErrConflict)
	// ErrPersistence matches every PersistenceError.
	ErrPersistence = errors.New("inventory: persistence failure")
	// ErrInconsistent matches every InconsistencyError.
	ErrInconsistent = errors.New("inventory: header committed without stock adjustments")
	// ErrTransactionVanished is returned when a header just written cannot be read back.
	ErrTransactionVanished = errors.New("inventory: transaction vanished after write")
	// ErrAdjustmentRecorded reports a log row that already exists for a line.
	ErrAdjustmentRecorded = fmt.Errorf("inventory: adjustment already recorded for line: %w", shared.ErrConflict)
	// ErrConcurrentUpdate reports a unit of work aborted by a lock conflict; retrying may succeed.
	ErrConcurrentUpdate = fmt.Errorf("inventory: concurrent stock update, retry the request: %w", shared.ErrConflict)
	// ErrIdempotencyInFlight reports a retry whose original request has not finished.
	ErrIdempotencyInFlight = fmt.Errorf("inventory: request with this idempotency key is still processing: %w", shared.ErrConflict)

	errEmptyLines      = errors.New("at least one line is required")
	errInvalidQuantity = errors.New("quantity must be greater than zero")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func lineError(line int, cause error) error {
	return fmt.Errorf("%w: line %d: %w", ErrValidation, line, cause)
}

// InsufficientStockError reports the first line whose request exceeds stock.
type InsufficientStockError struct {
	Line      int
	ItemID    int64
	ItemName  string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("line %d: item %s has only %d in stock, %d requested", e.Line, e.ItemName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock || target == shared.ErrConflict
}

// ProblemFields exposes the shortfall in problem responses.
func (e *InsufficientStockError) ProblemFields() map[string]any {
	return map[string]any{
		"line":      e.Line,
		"item_id":   e.ItemID,
		"available": e.Available,
		"requested": e.Requested,
	}
}

// PersistenceError wraps a storage failure with the step that raised it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("inventory: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// persistence wraps err unless it already carries a domain meaning.
func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	var ise *InsufficientStockError
	var ie *InconsistencyError
	var lf *lineFailure
	switch {
	case errors.As(err, &pe), errors.As(err, &ise), errors.As(err, &ie), errors.As(err, &lf),
		errors.Is(err, shared.ErrNotFound), errors.Is(err, ErrValidation),
		errors.Is(err, ErrTransactionVanished), errors.Is(err, ErrAdjustmentRecorded),
		errors.Is(err, ErrConcurrentUpdate):
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// lineFailure attaches the failing line number to a storage error.
type lineFailure struct {
	line int
	err  error
}

func (e *lineFailure) Error() string { return fmt.Sprintf("line %d: %v", e.line, e.err) }

func (e *lineFailure) Unwrap() error { return e.err }

// atLine tags err with the 1-based line it came from.
func atLine(line int, err error) error {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		ise.Line = line
		return err
	}
	return &lineFailure{line: line, err: err}
}

// failedLine recovers the line number carried by err, or 0.
func failedLine(err error) int {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise.Line
	}
	var lf *lineFailure
	if errors.As(err, &lf) {
		return lf.line
	}
	return 0
}

// InconsistencyError reports a header and lines that committed while stock
// adjustments for line Line onward did not. ResumeAdjustments repairs it.
type InconsistencyError struct {
	Kind          Kind
	TransactionID int64
	Line          int
	Err           error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("inventory: %s %d committed but adjustments failed at line %d: %v", e.Kind, e.TransactionID, e.Line, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

func (e *InconsistencyError) Is(target error) bool { return target == ErrInconsistent }

// ProblemFields lets clients find the transaction to resume.
func (e *InconsistencyError) ProblemFields() map[string]any {
	return map[string]any{"kind": e.Kind, "transaction_id": e.TransactionID, "line": e.Line}
}
