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

var postColumns = []string{"id", "community_id", "author_id", "content", "created_at"}

// PostRepository implements port.PostRepository using PostgreSQL.
type PostRepository struct {
	store
}

// NewPostRepository wires a PostgreSQL-backed post repository.
func NewPostRepository(db pgDB, timeout time.Duration) *PostRepository {
	return &PostRepository{store: newStore(db, timeout)}
}

// Create inserts a post.
func (r *PostRepository) Create(ctx context.Context, post domain.Post) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Insert(table("posts")).
		Columns(postColumns...).
		Values(post.ID, post.CommunityID, post.AuthorID, post.Content, post.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert post sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetByID retrieves a post by identifier.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select(postColumns...).
		From(table("posts")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select post sql: %w", err)
	}

	var post domain.Post
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&post.ID, &post.CommunityID, &post.AuthorID, &post.Content, &post.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &post, nil
}

// ListByIDs returns the posts that exist among ids. Missing ids are skipped.
func (r *PostRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Post, error) {
	if len(ids) == 0 {
		return []domain.Post{}, nil
	}
	return r.list(ctx, r.builder.Select(postColumns...).
		From(table("posts")).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("created_at DESC"))
}

// ListByCommunity returns a community's posts, newest first.
func (r *PostRepository) ListByCommunity(ctx context.Context, communityID string, limit, offset uint64) ([]domain.Post, error) {
	query := r.builder.Select(postColumns...).
		From(table("posts")).
		Where(squirrel.Eq{"community_id": communityID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return r.list(ctx, query)
}

func (r *PostRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]domain.Post, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list posts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]domain.Post, 0)
	for rows.Next() {
		var post domain.Post
		if err := rows.Scan(&post.ID, &post.CommunityID, &post.AuthorID, &post.Content, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// DeleteWithReports removes the reports filed against the post, then the post itself.
// A post without reports is still deleted.
func (r *PostRepository) DeleteWithReports(ctx context.Context, postID string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.inTx(ctx, func(tx pgx.Tx) error {
		stmt, args, err := r.builder.Delete(table("reports")).Where(squirrel.Eq{"post_id": postID}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete reports sql: %w", err)
		}
		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("delete reports: %w", err)
		}

		stmt, args, err = r.builder.Delete(table("posts")).Where(squirrel.Eq{"id": postID}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete post sql: %w", err)
		}
		ct, err := tx.Exec(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return requireAffected(ct, repository.ErrNotFound)
	})
}

var _ port.PostRepository = (*PostRepository)(nil)
