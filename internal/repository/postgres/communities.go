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

var communityColumns = []string{"id", "name", "description", "members", "moderators", "banned_users", "rule_ids", "created_at"}

// CommunityRepository implements port.CommunityRepository using PostgreSQL.
//
// Member, moderator and ban sets are TEXT[] columns. Each mutation is a single
// UPDATE guarded by an ANY() predicate, so a lost race shows up as zero affected
// rows rather than a duplicate element.
type CommunityRepository struct {
	store
}

// NewCommunityRepository wires a PostgreSQL-backed community repository.
func NewCommunityRepository(db pgDB, timeout time.Duration) *CommunityRepository {
	return &CommunityRepository{store: newStore(db, timeout)}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *CommunityRepository) WithTx(tx pgx.Tx) *CommunityRepository {
	if tx == nil {
		return r
	}
	return &CommunityRepository{store: r.store.withTx(tx)}
}

// Create inserts a community. A taken name yields repository.ErrDuplicate.
func (r *CommunityRepository) Create(ctx context.Context, community domain.Community) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Insert(table("communities")).
		Columns(communityColumns...).
		Values(
			community.ID,
			community.Name,
			community.Description,
			nonNil(community.Members),
			nonNil(community.Moderators),
			nonNil(community.BannedUsers),
			nonNil(community.RuleIDs),
			community.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert community sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert community: %w", translateError(err))
	}
	return nil
}

// GetByID retrieves a community by identifier.
func (r *CommunityRepository) GetByID(ctx context.Context, id string) (*domain.Community, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByName retrieves a community by its unique name.
func (r *CommunityRepository) GetByName(ctx context.Context, name string) (*domain.Community, error) {
	return r.getOne(ctx, squirrel.Eq{"name": name})
}

func (r *CommunityRepository) getOne(ctx context.Context, pred squirrel.Sqlizer) (*domain.Community, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select(communityColumns...).
		From(table("communities")).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select community sql: %w", err)
	}

	community, err := scanCommunity(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan community: %w", err)
	}
	return community, nil
}

// List returns communities ordered by name.
func (r *CommunityRepository) List(ctx context.Context, limit, offset uint64) ([]domain.Community, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := r.builder.Select(communityColumns...).
		From(table("communities")).
		OrderBy("name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list communities sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query communities: %w", err)
	}
	defer rows.Close()

	communities := make([]domain.Community, 0)
	for rows.Next() {
		community, err := scanCommunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan community: %w", err)
		}
		communities = append(communities, *community)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate communities: %w", err)
	}

	return communities, nil
}

// AddMember appends the user to members unless already a member or banned.
func (r *CommunityRepository) AddMember(ctx context.Context, communityID, userID string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.guardedUpdate(ctx, "add member",
		r.builder.Update(table("communities")).
			Set("members", squirrel.Expr("array_append(members, ?)", userID)).
			Where(squirrel.Eq{"id": communityID}).
			Where(squirrel.Expr("NOT (? = ANY(members))", userID)).
			Where(squirrel.Expr("NOT (? = ANY(banned_users))", userID)),
	)
}

// RemoveMember drops the user from members and, if present, from moderators.
func (r *CommunityRepository) RemoveMember(ctx context.Context, communityID, userID string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.inTx(ctx, func(tx pgx.Tx) error {
		txRepo := r.WithTx(tx)
		if err := txRepo.guardedUpdate(ctx, "remove member",
			txRepo.builder.Update(table("communities")).
				Set("members", squirrel.Expr("array_remove(members, ?)", userID)).
				Set("moderators", squirrel.Expr("array_remove(moderators, ?)", userID)).
				Where(squirrel.Eq{"id": communityID}).
				Where(squirrel.Expr("? = ANY(members)", userID)),
		); err != nil {
			return err
		}
		return NewUserRepository(r.db, r.timeout).WithTx(tx).demoteIfUnassigned(ctx, userID)
	})
}

// AssignModerator appends the user to moderators and promotes their role.
func (r *CommunityRepository) AssignModerator(ctx context.Context, communityID, userID string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.inTx(ctx, func(tx pgx.Tx) error {
		txRepo := r.WithTx(tx)
		if err := txRepo.guardedUpdate(ctx, "assign moderator",
			txRepo.builder.Update(table("communities")).
				Set("moderators", squirrel.Expr("array_append(moderators, ?)", userID)).
				Where(squirrel.Eq{"id": communityID}).
				Where(squirrel.Expr("NOT (? = ANY(moderators))", userID)),
		); err != nil {
			return err
		}
		return NewUserRepository(r.db, r.timeout).WithTx(tx).promote(ctx, userID)
	})
}

// RevokeModerator removes the user from moderators and demotes them when they moderate nothing else.
func (r *CommunityRepository) RevokeModerator(ctx context.Context, communityID, userID string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.inTx(ctx, func(tx pgx.Tx) error {
		txRepo := r.WithTx(tx)
		if err := txRepo.guardedUpdate(ctx, "revoke moderator",
			txRepo.builder.Update(table("communities")).
				Set("moderators", squirrel.Expr("array_remove(moderators, ?)", userID)).
				Where(squirrel.Eq{"id": communityID}).
				Where(squirrel.Expr("? = ANY(moderators)", userID)),
		); err != nil {
			return err
		}
		return NewUserRepository(r.db, r.timeout).WithTx(tx).demoteIfUnassigned(ctx, userID)
	})
}

// Ban appends the user to banned_users and drops them from members and moderators.
func (r *CommunityRepository) Ban(ctx context.Context, communityID, userID string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.inTx(ctx, func(tx pgx.Tx) error {
		txRepo := r.WithTx(tx)
		if err := txRepo.guardedUpdate(ctx, "ban user",
			txRepo.builder.Update(table("communities")).
				Set("banned_users", squirrel.Expr("array_append(banned_users, ?)", userID)).
				Set("members", squirrel.Expr("array_remove(members, ?)", userID)).
				Set("moderators", squirrel.Expr("array_remove(moderators, ?)", userID)).
				Where(squirrel.Eq{"id": communityID}).
				Where(squirrel.Expr("NOT (? = ANY(banned_users))", userID)),
		); err != nil {
			return err
		}
		return NewUserRepository(r.db, r.timeout).WithTx(tx).demoteIfUnassigned(ctx, userID)
	})
}

// Unban removes the user from banned_users. Membership is not restored.
func (r *CommunityRepository) Unban(ctx context.Context, communityID, userID string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.guardedUpdate(ctx, "unban user",
		r.builder.Update(table("communities")).
			Set("banned_users", squirrel.Expr("array_remove(banned_users, ?)", userID)).
			Where(squirrel.Eq{"id": communityID}).
			Where(squirrel.Expr("? = ANY(banned_users)", userID)),
	)
}

func (r *CommunityRepository) guardedUpdate(ctx context.Context, op string, query squirrel.UpdateBuilder) error {
	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build %s sql: %w", op, err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireAffected(ct, repository.ErrConflict)
}

func scanCommunity(row pgx.Row) (*domain.Community, error) {
	var c domain.Community
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Members,
		&c.Moderators,
		&c.BannedUsers,
		&c.RuleIDs,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

var _ port.CommunityRepository = (*CommunityRepository)(nil)
