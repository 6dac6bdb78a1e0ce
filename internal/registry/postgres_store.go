package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore stores callers in the callers table (see migrations/).
type PostgresStore struct {
	pool pgxQuerier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool pgxQuerier) *PostgresStore {
	if pool == nil {
		panic("registry: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, caller *Caller) (bool, error) {
	query := `
		INSERT INTO callers (uid, email, name, registered_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uid) DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, query, caller.UID, caller.Email, caller.Name, caller.RegisteredAt)
	if err != nil {
		return false, fmt.Errorf("registry: insert failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Exists(ctx context.Context, uid string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM callers WHERE uid = $1)`, uid).Scan(&exists); err != nil {
		return false, fmt.Errorf("registry: exists query failed: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Get(ctx context.Context, uid string) (*Caller, error) {
	query := `
		SELECT uid, email, name, registered_at
		FROM callers
		WHERE uid = $1
	`
	var caller Caller
	if err := s.pool.QueryRow(ctx, query, uid).Scan(
		&caller.UID,
		&caller.Email,
		&caller.Name,
		&caller.RegisteredAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCallerNotFound
		}
		return nil, fmt.Errorf("registry: select failed: %w", err)
	}
	caller.RegisteredAt = caller.RegisteredAt.UTC()
	return &caller, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM callers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("registry: count failed: %w", err)
	}
	return n, nil
}
