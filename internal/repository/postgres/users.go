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

var userColumns = []string{"id", "username", "email", "password_hash", "role", "created_at"}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	store
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(db pgDB, timeout time.Duration) *UserRepository {
	return &UserRepository{store: newStore(db, timeout)}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{store: r.store.withTx(tx)}
}

// Create inserts a new user row. Unique violations surface as repository.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Insert(table("users")).
		Columns(userColumns...).
		Values(user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role), user.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert user: %w", translateError(err))
	}
	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByIdentifier retrieves a user by username or email.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Or{
		squirrel.Eq{"username": identifier},
		squirrel.Eq{"email": identifier},
	})
}

func (r *UserRepository) getOne(ctx context.Context, pred squirrel.Sqlizer) (*domain.User, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select(userColumns...).
		From(table("users")).
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var (
		user domain.User
		role string
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.Role = domain.UserRole(role)

	return &user, nil
}

// UpdateRole sets the platform role of a user.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role domain.UserRole) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Update(table("users")).
		Set("role", string(role)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user role sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return requireAffected(ct, repository.ErrNotFound)
}

// demoteIfUnassigned resets a moderator to the general role once no community lists them as moderator.
// Admins keep their role.
func (r *UserRepository) demoteIfUnassigned(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update(table("users")).
		Set("role", string(domain.UserRoleGeneral)).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"role": string(domain.UserRoleModerator)}).
		Where(squirrel.Expr("NOT EXISTS (SELECT 1 FROM "+table("communities")+" WHERE ? = ANY(moderators))", id)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build demote user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("demote user: %w", err)
	}
	return nil
}

// promote raises a user to moderator. Admins keep their role.
func (r *UserRepository) promote(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update(table("users")).
		Set("role", squirrel.Expr("CASE WHEN role = ? THEN role ELSE ? END", string(domain.UserRoleAdmin), string(domain.UserRoleModerator))).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build promote user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("promote user: %w", err)
	}
	return requireAffected(ct, repository.ErrNotFound)
}

var _ port.UserRepository = (*UserRepository)(nil)
