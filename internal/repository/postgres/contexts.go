package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/repository"
)

var contextColumns = []string{"ip", "country", "city", "browser", "platform", "os", "device", "device_type"}

var suspiciousColumns = append(append([]string{"id", "user_id", "email"}, contextColumns...),
	"unverified_attempts", "is_trusted", "is_blocked", "created_at", "updated_at")

var trustedColumns = append(append([]string{"id", "user_id", "email"}, contextColumns...), "created_at")

func contextValues(c domain.LoginContext) []any {
	return []any{c.IP, c.Country, c.City, c.Browser, c.Platform, c.OS, c.Device, c.DeviceType}
}

func contextTargets(c *domain.LoginContext) []any {
	return []any{&c.IP, &c.Country, &c.City, &c.Browser, &c.Platform, &c.OS, &c.Device, &c.DeviceType}
}

// ContextRepository implements port.ContextRepository using PostgreSQL.
type ContextRepository struct {
	store
}

// NewContextRepository wires a PostgreSQL-backed login context repository.
func NewContextRepository(db pgDB, timeout time.Duration) *ContextRepository {
	return &ContextRepository{store: newStore(db, timeout)}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *ContextRepository) WithTx(tx pgx.Tx) *ContextRepository {
	if tx == nil {
		return r
	}
	return &ContextRepository{store: r.store.withTx(tx)}
}

// CreateSuspiciousLogin inserts a new suspicious login record. A second pending record for the
// same user and context yields repository.ErrDuplicate; an unknown user yields
// repository.ErrMissingReference.
func (r *ContextRepository) CreateSuspiciousLogin(ctx context.Context, record domain.SuspiciousLogin) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	values := append([]any{record.ID, record.UserID, record.Email}, contextValues(record.Context)...)
	values = append(values, record.UnverifiedAttempts, record.IsTrusted, record.IsBlocked, record.CreatedAt, record.UpdatedAt)

	stmt, args, err := r.builder.Insert(table("suspicious_logins")).
		Columns(suspiciousColumns...).
		Values(values...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert suspicious login sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert suspicious login: %w", translateError(err))
	}
	return nil
}

// GetSuspiciousLogin retrieves a suspicious login by identifier.
func (r *ContextRepository) GetSuspiciousLogin(ctx context.Context, id string) (*domain.SuspiciousLogin, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select(suspiciousColumns...).
		From(table("suspicious_logins")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select suspicious login sql: %w", err)
	}

	record, err := scanSuspicious(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan suspicious login: %w", err)
	}
	return record, nil
}

// ListSuspiciousLogins returns a user's records, oldest first.
func (r *ContextRepository) ListSuspiciousLogins(ctx context.Context, userID string, filter port.SuspiciousLoginFilter) ([]domain.SuspiciousLogin, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := r.builder.Select(suspiciousColumns...).
		From(table("suspicious_logins")).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at ASC")

	switch filter {
	case port.SuspiciousLoginFilterUntrusted:
		query = query.Where(squirrel.Eq{"is_trusted": false})
	case port.SuspiciousLoginFilterPending:
		query = query.Where(squirrel.Eq{"is_trusted": false, "is_blocked": false})
	case port.SuspiciousLoginFilterBlocked:
		query = query.Where(squirrel.Eq{"is_blocked": true})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list suspicious logins sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query suspicious logins: %w", err)
	}
	defer rows.Close()

	records := make([]domain.SuspiciousLogin, 0)
	for rows.Next() {
		record, err := scanSuspicious(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suspicious login: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suspicious logins: %w", err)
	}

	return records, nil
}

// RecordUnverifiedAttempt increments the attempt counter in a single statement so concurrent
// logins cannot lose updates. Blocking is sticky.
func (r *ContextRepository) RecordUnverifiedAttempt(ctx context.Context, id string, threshold int) (*domain.SuspiciousLogin, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Update(table("suspicious_logins")).
		Set("unverified_attempts", squirrel.Expr("unverified_attempts + 1")).
		Set("is_blocked", squirrel.Expr("is_blocked OR unverified_attempts + 1 > ?", threshold)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id, "is_trusted": false}).
		Suffix("RETURNING " + strings.Join(suspiciousColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build record attempt sql: %w", err)
	}

	record, err := scanSuspicious(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("record unverified attempt: %w", err)
	}
	return record, nil
}

// SetBlocked blocks or unblocks a record. Unblocking also resets the attempt counter.
func (r *ContextRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := r.builder.Update(table("suspicious_logins")).
		Set("is_blocked", blocked).
		Set("updated_at", time.Now().UTC())
	if !blocked {
		query = query.Set("unverified_attempts", 0)
	}

	stmt, args, err := query.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build set blocked sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}
	return requireAffected(ct, repository.ErrNotFound)
}

// DeleteSuspiciousLogin removes a record.
func (r *ContextRepository) DeleteSuspiciousLogin(ctx context.Context, id string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Delete(table("suspicious_logins")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete suspicious login sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete suspicious login: %w", err)
	}
	return requireAffected(ct, repository.ErrNotFound)
}

// TrustSuspiciousLogin confirms a pending record and stores its context as trusted.
// A blocked or already trusted record yields repository.ErrConflict.
func (r *ContextRepository) TrustSuspiciousLogin(ctx context.Context, recordID string, trusted domain.TrustedContext) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.inTx(ctx, func(tx pgx.Tx) error {
		txRepo := r.WithTx(tx)

		stmt, args, err := txRepo.builder.Update(table("suspicious_logins")).
			Set("is_trusted", true).
			Set("unverified_attempts", 0).
			Set("updated_at", trusted.CreatedAt).
			Where(squirrel.Eq{"id": recordID, "is_trusted": false, "is_blocked": false}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build trust suspicious login sql: %w", err)
		}

		ct, err := txRepo.exec.Exec(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("trust suspicious login: %w", err)
		}
		if err := requireAffected(ct, repository.ErrConflict); err != nil {
			return err
		}

		return txRepo.insertTrusted(ctx, trusted)
	})
}

// CreateTrustedContext stores a trusted context. Storing an identical context twice is a no-op.
func (r *ContextRepository) CreateTrustedContext(ctx context.Context, trusted domain.TrustedContext) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.insertTrusted(ctx, trusted)
}

func (r *ContextRepository) insertTrusted(ctx context.Context, trusted domain.TrustedContext) error {
	values := append([]any{trusted.ID, trusted.UserID, trusted.Email}, contextValues(trusted.Context)...)
	values = append(values, trusted.CreatedAt)

	stmt, args, err := r.builder.Insert(table("trusted_contexts")).
		Columns(trustedColumns...).
		Values(values...).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert trusted context sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert trusted context: %w", err)
	}
	return nil
}

// ListTrustedContexts returns a user's trusted contexts, oldest first.
func (r *ContextRepository) ListTrustedContexts(ctx context.Context, userID string) ([]domain.TrustedContext, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select(trustedColumns...).
		From(table("trusted_contexts")).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list trusted contexts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query trusted contexts: %w", err)
	}
	defer rows.Close()

	contexts := make([]domain.TrustedContext, 0)
	for rows.Next() {
		var tc domain.TrustedContext
		targets := append([]any{&tc.ID, &tc.UserID, &tc.Email}, contextTargets(&tc.Context)...)
		targets = append(targets, &tc.CreatedAt)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan trusted context: %w", err)
		}
		contexts = append(contexts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trusted contexts: %w", err)
	}

	return contexts, nil
}

// DeleteTrustedContext removes one of the user's trusted contexts.
func (r *ContextRepository) DeleteTrustedContext(ctx context.Context, userID, id string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Delete(table("trusted_contexts")).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete trusted context sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete trusted context: %w", err)
	}
	return requireAffected(ct, repository.ErrNotFound)
}

func scanSuspicious(row pgx.Row) (*domain.SuspiciousLogin, error) {
	var record domain.SuspiciousLogin
	targets := append([]any{&record.ID, &record.UserID, &record.Email}, contextTargets(&record.Context)...)
	targets = append(targets, &record.UnverifiedAttempts, &record.IsTrusted, &record.IsBlocked, &record.CreatedAt, &record.UpdatedAt)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	return &record, nil
}

var _ port.ContextRepository = (*ContextRepository)(nil)
