package inventory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

func TestMapTxErr(t *testing.T) {
	require.NoError(t, mapTxErr(nil))

	deadlock := atLine(2, fmt.Errorf("apply delta: %w", &pgconn.PgError{Code: "40P01"}))
	err := mapTxErr(deadlock)
	require.ErrorIs(t, err, ErrConcurrentUpdate)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, 2, failedLine(err))
	require.Equal(t, err, persistence("apply", err))

	plain := errors.New("connection reset")
	require.Equal(t, plain, mapTxErr(plain))
}
