package catalog

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

func TestMapWriteErr(t *testing.T) {
	require.NoError(t, mapWriteErr(nil))

	err := mapWriteErr(&pgconn.PgError{Code: "23505", ConstraintName: "items_item_code_key"})
	require.ErrorIs(t, err, ErrDuplicate)

	err = mapWriteErr(&pgconn.PgError{Code: "23503", ConstraintName: "items_category_fkey"})
	require.ErrorIs(t, err, ErrInUse)

	err = mapWriteErr(&pgconn.PgError{Code: "22001", Message: "value too long for type character varying(50)"})
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, shared.ErrValidation)

	plain := errors.New("connection reset")
	require.Equal(t, plain, mapWriteErr(plain))
}
