package catalog

import (
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = fmt.Errorf("catalog: %w", shared.ErrNotFound)
	// ErrValidation wraps invalid create or update input.
	ErrValidation = fmt.Errorf("catalog: %w", shared.ErrValidation)
	// ErrDuplicate reports a unique key clash (item_code, department name, employee number).
	ErrDuplicate = fmt.Errorf("catalog: %w", shared.ErrDuplicate)
	// ErrInvalidReference reports a create or update pointing at a missing entity.
	ErrInvalidReference = fmt.Errorf("catalog: invalid reference: %w", shared.ErrUnprocessable)
	// ErrInUse reports a delete blocked by rows that still reference the entity.
	ErrInUse = fmt.Errorf("catalog: entity still referenced: %w", shared.ErrConflict)
)

// Entity names used in lookups.
const (
	EntityDepartment    = "department"
	EntityEmployee      = "employee"
	EntityItem          = "item"
	EntityVendor        = "vendor"
	EntityItemCategory  = "item category"
	EntityUnitOfMeasure = "unit of measure"
)

// NotFoundError names the entity and the key that failed to resolve.
type NotFoundError struct {
	Entity string
	Field  string
	Key    any
}

func (e *NotFoundError) Error() string {
	field := e.Field
	if field == "" {
		field = "id"
	}
	return fmt.Sprintf("%s with %s %v not found", cases.Title(language.English).String(e.Entity), field, e.Key)
}

// Is lets errors.Is(err, ErrNotFound) and shared.ErrNotFound match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == shared.ErrNotFound
}

// ProblemFields exposes the lookup in problem responses.
func (e *NotFoundError) ProblemFields() map[string]any {
	field := e.Field
	if field == "" {
		field = "id"
	}
	return map[string]any{"entity": e.Entity, "field": field, "key": e.Key}
}

func notFoundByID(entity string, id int64) error {
	return &NotFoundError{Entity: entity, Key: id}
}

func invalidReference(err error) error {
	if err == nil || !errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidReference, err)
}

// IsNotFound reports whether err is a catalog lookup miss.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
