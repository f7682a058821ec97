package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/repository"
)

// addReportSQL creates the report for a post or appends a new reporter to it. The
// conflict branch only fires for a reporter not yet in reported_by, so a repeat
// report returns no row.
const addReportSQL = `
INSERT INTO trust.reports (id, community_id, post_id, reported_by, reasons, created_at, updated_at)
VALUES ($1, $2, $3, ARRAY[$4::text], jsonb_build_array($5::jsonb), $6, $6)
ON CONFLICT (post_id) DO UPDATE
   SET reported_by = array_append(reports.reported_by, $4::text),
       reasons     = reports.reasons || jsonb_build_array($5::jsonb),
       updated_at  = EXCLUDED.updated_at
 WHERE NOT ($4::text = ANY(reports.reported_by))
RETURNING (xmax = 0) AS inserted`

var reportColumns = []string{"id", "community_id", "post_id", "reported_by", "reasons", "created_at", "updated_at"}

// ReportRepository implements port.ReportRepository using PostgreSQL.
type ReportRepository struct {
	store
}

// NewReportRepository wires a PostgreSQL-backed report repository.
func NewReportRepository(db pgDB, timeout time.Duration) *ReportRepository {
	return &ReportRepository{store: newStore(db, timeout)}
}

// AddReport upserts the report and attaches the reporter's reason.
func (r *ReportRepository) AddReport(ctx context.Context, report domain.Report, reason domain.ReportReason) (bool, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	payload, err := json.Marshal(reason)
	if err != nil {
		return false, fmt.Errorf("marshal report reason: %w", err)
	}

	var inserted bool
	if err := r.exec.QueryRow(ctx, addReportSQL,
		report.ID,
		report.CommunityID,
		report.PostID,
		reason.UserID,
		string(payload),
		reason.ReportedAt,
	).Scan(&inserted); err != nil {
		if err == pgx.ErrNoRows {
			return false, repository.ErrConflict
		}
		return false, fmt.Errorf("add report: %w", err)
	}
	return inserted, nil
}

// ListByCommunity returns every report in the community, oldest first.
func (r *ReportRepository) ListByCommunity(ctx context.Context, communityID string) ([]domain.Report, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select(reportColumns...).
		From(table("reports")).
		Where(squirrel.Eq{"community_id": communityID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list reports sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]domain.Report, 0)
	for rows.Next() {
		var (
			report  domain.Report
			reasons []byte
		)
		if err := rows.Scan(
			&report.ID,
			&report.CommunityID,
			&report.PostID,
			&report.ReportedBy,
			&reasons,
			&report.CreatedAt,
			&report.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if len(reasons) > 0 {
			if err := json.Unmarshal(reasons, &report.Reasons); err != nil {
				return nil, fmt.Errorf("decode report reasons: %w", err)
			}
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// DeleteByPost removes the report filed against the post.
func (r *ReportRepository) DeleteByPost(ctx context.Context, postID string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	stmt, args, err := r.builder.Delete(table("reports")).
		Where(squirrel.Eq{"post_id": postID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete report sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return requireAffected(ct, repository.ErrNotFound)
}

var _ port.ReportRepository = (*ReportRepository)(nil)
