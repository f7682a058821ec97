package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arklim/social-platform-trust/internal/repository"
)

const (
	schema = "trust"

	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgDB is satisfied by *pgxpool.Pool and by pgxmock pools.
type pgDB interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// store carries what every repository needs: the pool, the executor in use
// (pool or transaction), the statement builder and the per-query timeout.
type store struct {
	db      pgDB
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	timeout time.Duration
}

func newStore(db pgDB, timeout time.Duration) store {
	return store{
		db:      db,
		exec:    db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		timeout: timeout,
	}
}

func (s store) withTx(tx pgx.Tx) store {
	s.exec = tx
	return s
}

func (s store) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// inTx runs fn inside a transaction started on the pool. The transaction is
// rolled back when fn fails and committed otherwise.
func (s store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func table(name string) string {
	return schema + "." + name
}

// translateError maps driver errors onto repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
		case foreignKeyViolationCode:
			return fmt.Errorf("%w: %s", repository.ErrMissingReference, pgErr.ConstraintName)
		}
	}
	return err
}

func requireAffected(tag pgconn.CommandTag, sentinel error) error {
	if tag.RowsAffected() == 0 {
		return sentinel
	}
	return nil
}
