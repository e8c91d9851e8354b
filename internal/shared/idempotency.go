package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyStore persists processed keys.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

func checkKey(s *IdempotencyStore, key, module string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	return nil
}

// Claim reserves key for module. A key already claimed returns
// ErrIdempotencyConflict.
func (s *IdempotencyStore) Claim(ctx context.Context, key, module string) error {
	if err := checkKey(s, key, module); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, key, module, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Result returns the stored response for a claimed key. done is false while
// the original request is still running.
func (s *IdempotencyStore) Result(ctx context.Context, key, module string) ([]byte, bool, error) {
	if err := checkKey(s, key, module); err != nil {
		return nil, false, err
	}
	var result []byte
	err := s.pool.QueryRow(ctx, `SELECT result FROM idempotency_keys WHERE key=$1 AND module=$2`, key, module).Scan(&result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return result, result != nil, nil
}

// Reclaim takes over a claim that never completed and was made before
// staleBefore, resetting its age. It reports false when the claim finished,
// is still fresh, or was taken by a concurrent caller first.
func (s *IdempotencyStore) Reclaim(ctx context.Context, key, module string, staleBefore time.Time) (bool, error) {
	if err := checkKey(s, key, module); err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `UPDATE idempotency_keys SET created_at=$4
WHERE key=$1 AND module=$2 AND completed_at IS NULL AND result IS NULL AND created_at < $3`,
		key, module, staleBefore, time.Now())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Complete stores the response for a claimed key.
func (s *IdempotencyStore) Complete(ctx context.Context, key, module string, result []byte) error {
	if err := checkKey(s, key, module); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `UPDATE idempotency_keys SET result=$3, completed_at=NOW() WHERE key=$1 AND module=$2`, key, module, result)
	return err
}

// Release removes a claim so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key, module string) error {
	if err := checkKey(s, key, module); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key=$1 AND module=$2`, key, module)
	return err
}

// Cleanup removes entries claimed more than olderThan ago and returns how
// many were deleted.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	if olderThan <= 0 {
		return 0, errors.New("idempotency retention must be positive")
	}
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
