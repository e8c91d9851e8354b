package rbac

import (
	"fmt"

	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = fmt.Errorf("rbac: %w", shared.ErrNotFound)
	// ErrValidation marks malformed input.
	ErrValidation = fmt.Errorf("rbac: %w", shared.ErrValidation)
	// ErrDuplicate marks a taken user, role or permission name.
	ErrDuplicate = fmt.Errorf("rbac: %w", shared.ErrDuplicate)
	// ErrInvalidReference marks a user pointing at an unknown employee.
	ErrInvalidReference = fmt.Errorf("rbac: invalid reference: %w", shared.ErrUnprocessable)
)

func notFound(entity string, id int64) error {
	return fmt.Errorf("%w: %s with id %d", ErrNotFound, entity, id)
}
