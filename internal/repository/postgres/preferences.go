package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/repository"
)

// PreferenceRepository implements port.PreferenceRepository using PostgreSQL.
type PreferenceRepository struct {
	store
}

// NewPreferenceRepository wires a PostgreSQL-backed preference repository.
func NewPreferenceRepository(db pgDB, timeout time.Duration) *PreferenceRepository {
	return &PreferenceRepository{store: newStore(db, timeout)}
}

// Get returns the user's preference or repository.ErrNotFound.
func (r *PreferenceRepository) Get(ctx context.Context, userID string) (*domain.UserPreference, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select("user_id", "enable_context_based_auth", "updated_at").
		From(table("user_preferences")).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select preference sql: %w", err)
	}

	var pref domain.UserPreference
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&pref.UserID, &pref.EnableContextBasedAuth, &pref.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan preference: %w", err)
	}
	return &pref, nil
}

// Upsert creates or replaces the user's preference.
func (r *PreferenceRepository) Upsert(ctx context.Context, pref domain.UserPreference) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Insert(table("user_preferences")).
		Columns("user_id", "enable_context_based_auth", "updated_at").
		Values(pref.UserID, pref.EnableContextBasedAuth, pref.UpdatedAt).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET enable_context_based_auth = EXCLUDED.enable_context_based_auth, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert preference sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

var _ port.PreferenceRepository = (*PreferenceRepository)(nil)
