package port

import (
	"context"

	"github.com/arklim/social-platform-trust/internal/core/domain"
)

// CommunityRepository persists communities and their member sets.
//
// Set mutations return repository.ErrConflict when the guarded precondition
// (membership, moderator or ban status) does not hold at write time.
type CommunityRepository interface {
	Create(ctx context.Context, community domain.Community) error
	GetByID(ctx context.Context, id string) (*domain.Community, error)
	GetByName(ctx context.Context, name string) (*domain.Community, error)
	List(ctx context.Context, limit, offset uint64) ([]domain.Community, error)

	AddMember(ctx context.Context, communityID, userID string) error
	RemoveMember(ctx context.Context, communityID, userID string) error
	// AssignModerator adds the user to the moderator set and promotes their role in one transaction.
	AssignModerator(ctx context.Context, communityID, userID string) error
	// RevokeModerator removes the user from the moderator set and demotes their role
	// when they no longer moderate any community, in one transaction.
	RevokeModerator(ctx context.Context, communityID, userID string) error
	Ban(ctx context.Context, communityID, userID string) error
	Unban(ctx context.Context, communityID, userID string) error
}

// PostRepository persists community posts.
type PostRepository interface {
	Create(ctx context.Context, post domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Post, error)
	ListByCommunity(ctx context.Context, communityID string, limit, offset uint64) ([]domain.Post, error)
	// DeleteWithReports removes the post and every report filed against it in one transaction.
	DeleteWithReports(ctx context.Context, postID string) error
}

// ReportRepository persists post reports.
type ReportRepository interface {
	// AddReport creates the report for the post or appends the reporter to it.
	// It returns repository.ErrConflict when the reporter already reported the post.
	AddReport(ctx context.Context, report domain.Report, reason domain.ReportReason) (created bool, err error)
	ListByCommunity(ctx context.Context, communityID string) ([]domain.Report, error)
	// DeleteByPost returns repository.ErrNotFound when the post has no report.
	DeleteByPost(ctx context.Context, postID string) error
}
