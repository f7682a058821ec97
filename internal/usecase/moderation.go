package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/infra/logger"
	"github.com/arklim/social-platform-trust/internal/repository"
)

const maxReportReasonLength = 500

// Moderation action labels reported to the observer.
const (
	ModerationActionAssignModerator = "assign_moderator"
	ModerationActionRemoveModerator = "remove_moderator"
	ModerationActionBan             = "ban"
	ModerationActionUnban           = "unban"
	ModerationActionReport          = "report"
	ModerationActionRemovePost      = "remove_post"
	ModerationActionDismissReport   = "dismiss_report"
)

// ModerationService implements moderator assignment, bans and the report lifecycle.
// Moderator rights are read from the community on every call.
type ModerationService struct {
	communities port.CommunityRepository
	users       port.UserRepository
	posts       port.PostRepository
	reports     port.ReportRepository
	events      port.EventPublisher
	observer    port.ModerationObserver
	logger      *zap.Logger
	now         func() time.Time
}

// ModerationOption customises a ModerationService.
type ModerationOption func(*ModerationService)

// WithModerationEvents publishes committed moderation changes.
func WithModerationEvents(events port.EventPublisher) ModerationOption {
	return func(s *ModerationService) { s.events = events }
}

// WithModerationObserver counts moderation actions.
func WithModerationObserver(observer port.ModerationObserver) ModerationOption {
	return func(s *ModerationService) { s.observer = observer }
}

// NewModerationService constructs a ModerationService.
func NewModerationService(
	communities port.CommunityRepository,
	users port.UserRepository,
	posts port.PostRepository,
	reports port.ReportRepository,
	log *zap.Logger,
	opts ...ModerationOption,
) *ModerationService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &ModerationService{
		communities: communities,
		users:       users,
		posts:       posts,
		reports:     reports,
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddModerator grants a member moderator rights and promotes their platform role.
func (s *ModerationService) AddModerator(ctx context.Context, communityID, userID string) error {
	community, err := s.communityByID(ctx, communityID)
	if err != nil {
		return err
	}
	if _, err := loadUser(ctx, s.users, userID); err != nil {
		return err
	}
	switch {
	case community.IsModerator(userID):
		return ErrAlreadyModerator
	case !community.IsMember(userID):
		return ErrNotMember
	}

	if err := s.communities.AssignModerator(ctx, community.ID, userID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrAlreadyModerator
		}
		return dependencyError("assign moderator", err)
	}

	s.record(ctx, ModerationActionAssignModerator, domain.ModerationEvent{
		Type:          domain.ModerationEventModeratorAssigned,
		CommunityID:   community.ID,
		CommunityName: community.Name,
		TargetUserID:  userID,
	})
	return nil
}

// RemoveModerator revokes moderator rights. The platform role drops to general only
// when the user moderates no other community.
func (s *ModerationService) RemoveModerator(ctx context.Context, communityID, userID string) error {
	community, err := s.communityByID(ctx, communityID)
	if err != nil {
		return err
	}
	if _, err := loadUser(ctx, s.users, userID); err != nil {
		return err
	}
	if !community.IsModerator(userID) {
		return ErrModeratorNotAssigned
	}

	if err := s.communities.RevokeModerator(ctx, community.ID, userID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrModeratorNotAssigned
		}
		return dependencyError("revoke moderator", err)
	}

	s.record(ctx, ModerationActionRemoveModerator, domain.ModerationEvent{
		Type:          domain.ModerationEventModeratorRemoved,
		CommunityID:   community.ID,
		CommunityName: community.Name,
		TargetUserID:  userID,
	})
	return nil
}

// BanUser bans the target and drops them from members and moderators.
func (s *ModerationService) BanUser(ctx context.Context, communityName, targetID, actorID string) error {
	community, err := s.moderatedCommunity(ctx, communityName, actorID)
	if err != nil {
		return err
	}
	if _, err := loadUser(ctx, s.users, targetID); err != nil {
		return err
	}
	if community.IsBanned(targetID) {
		return ErrAlreadyBanned
	}

	if err := s.communities.Ban(ctx, community.ID, targetID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrAlreadyBanned
		}
		return dependencyError("ban user", err)
	}

	s.record(ctx, ModerationActionBan, domain.ModerationEvent{
		Type:          domain.ModerationEventUserBanned,
		CommunityID:   community.ID,
		CommunityName: community.Name,
		ActorID:       actorID,
		TargetUserID:  targetID,
	})
	return nil
}

// UnbanUser lifts a ban. The user has to join the community again.
func (s *ModerationService) UnbanUser(ctx context.Context, communityName, targetID, actorID string) error {
	community, err := s.moderatedCommunity(ctx, communityName, actorID)
	if err != nil {
		return err
	}
	if _, err := loadUser(ctx, s.users, targetID); err != nil {
		return err
	}
	if !community.IsBanned(targetID) {
		return ErrNotBanned
	}

	if err := s.communities.Unban(ctx, community.ID, targetID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrNotBanned
		}
		return dependencyError("unban user", err)
	}

	s.record(ctx, ModerationActionUnban, domain.ModerationEvent{
		Type:          domain.ModerationEventUserUnbanned,
		CommunityID:   community.ID,
		CommunityName: community.Name,
		ActorID:       actorID,
		TargetUserID:  targetID,
	})
	return nil
}

// ReportPost files a report against a post. created is true for the first report of the post.
func (s *ModerationService) ReportPost(ctx context.Context, communityName, postID, reason, reporterID string) (bool, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" || utf8.RuneCountInString(reason) > maxReportReasonLength {
		return false, validationError("report reason must be between 1 and %d characters", maxReportReasonLength)
	}
	if strings.TrimSpace(reporterID) == "" {
		return false, validationError("reporter id is required")
	}

	community, err := loadCommunityByName(ctx, s.communities, communityName)
	if err != nil {
		return false, err
	}
	post, err := s.communityPost(ctx, community, postID)
	if err != nil {
		return false, err
	}

	now := s.now()
	entry := domain.ReportReason{UserID: reporterID, Reason: reason, ReportedAt: now}
	report := domain.Report{
		ID:          uuid.NewString(),
		CommunityID: community.ID,
		PostID:      post.ID,
		ReportedBy:  []string{reporterID},
		Reasons:     []domain.ReportReason{entry},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.reports.AddReport(ctx, report, entry)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return false, ErrAlreadyReported
		}
		return false, dependencyError("add report", err)
	}

	s.record(ctx, ModerationActionReport, domain.ModerationEvent{
		Type:          domain.ModerationEventPostReported,
		CommunityID:   community.ID,
		CommunityName: community.Name,
		ActorID:       reporterID,
		TargetUserID:  post.AuthorID,
		PostID:        post.ID,
		Reason:        reason,
	})
	return created, nil
}

// GetReportedPosts returns one entry per reported post with every report filed against it.
func (s *ModerationService) GetReportedPosts(ctx context.Context, communityName, actorID string) ([]domain.ReportedPost, error) {
	community, err := s.moderatedCommunity(ctx, communityName, actorID)
	if err != nil {
		return nil, err
	}

	reports, err := s.reports.ListByCommunity(ctx, community.ID)
	if err != nil {
		return nil, dependencyError("list reports", err)
	}
	if len(reports) == 0 {
		return []domain.ReportedPost{}, nil
	}

	// Group by post, keeping the order in which posts first appear.
	var postIDs []string
	grouped := make(map[string][]domain.Report)
	for _, report := range reports {
		if _, seen := grouped[report.PostID]; !seen {
			postIDs = append(postIDs, report.PostID)
		}
		grouped[report.PostID] = append(grouped[report.PostID], report)
	}

	posts, err := s.posts.ListByIDs(ctx, postIDs)
	if err != nil {
		return nil, dependencyError("list reported posts", err)
	}
	byID := make(map[string]domain.Post, len(posts))
	for _, post := range posts {
		byID[post.ID] = post
	}

	result := make([]domain.ReportedPost, 0, len(postIDs))
	for _, id := range postIDs {
		post, ok := byID[id]
		if !ok {
			logger.WithContext(ctx, s.logger).Warn("report references missing post",
				zap.String("community_id", community.ID),
				zap.String("post_id", id),
			)
			continue
		}
		result = append(result, domain.ReportedPost{Post: post, Reports: grouped[id]})
	}
	return result, nil
}

// RemoveReportedPost deletes a post and all of its reports. Posts without reports can be removed too.
func (s *ModerationService) RemoveReportedPost(ctx context.Context, communityName, postID, actorID string) error {
	community, err := s.moderatedCommunity(ctx, communityName, actorID)
	if err != nil {
		return err
	}
	post, err := s.communityPost(ctx, community, postID)
	if err != nil {
		return err
	}

	if err := s.posts.DeleteWithReports(ctx, post.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return dependencyError("remove post", err)
	}

	s.record(ctx, ModerationActionRemovePost, domain.ModerationEvent{
		Type:          domain.ModerationEventReportedPostRemoved,
		CommunityID:   community.ID,
		CommunityName: community.Name,
		ActorID:       actorID,
		TargetUserID:  post.AuthorID,
		PostID:        post.ID,
	})
	return nil
}

// DismissReport drops the report on a post and keeps the post.
func (s *ModerationService) DismissReport(ctx context.Context, communityName, postID, actorID string) error {
	community, err := s.moderatedCommunity(ctx, communityName, actorID)
	if err != nil {
		return err
	}
	post, err := s.communityPost(ctx, community, postID)
	if err != nil {
		return err
	}

	if err := s.reports.DeleteByPost(ctx, post.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReportNotFound
		}
		return dependencyError("dismiss report", err)
	}

	s.record(ctx, ModerationActionDismissReport, domain.ModerationEvent{
		Type:          domain.ModerationEventReportDismissed,
		CommunityID:   community.ID,
		CommunityName: community.Name,
		ActorID:       actorID,
		PostID:        post.ID,
	})
	return nil
}

func (s *ModerationService) communityByID(ctx context.Context, id string) (*domain.Community, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationError("community id is required")
	}
	community, err := s.communities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommunityNotFound
		}
		return nil, dependencyError("get community", err)
	}
	return community, nil
}

// moderatedCommunity loads the community and checks the actor moderates it.
func (s *ModerationService) moderatedCommunity(ctx context.Context, name, actorID string) (*domain.Community, error) {
	community, err := loadCommunityByName(ctx, s.communities, name)
	if err != nil {
		return nil, err
	}
	if !community.IsModerator(actorID) {
		logger.WithContext(ctx, s.logger).Info("moderation denied",
			zap.String("community_id", community.ID),
			zap.String("actor_id", actorID),
		)
		return nil, ErrNotModerator
	}
	return community, nil
}

// communityPost loads a post and hides posts from other communities.
func (s *ModerationService) communityPost(ctx context.Context, community *domain.Community, postID string) (*domain.Post, error) {
	if strings.TrimSpace(postID) == "" {
		return nil, validationError("post id is required")
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, dependencyError("get post", err)
	}
	if post.CommunityID != community.ID {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *ModerationService) record(ctx context.Context, action string, event domain.ModerationEvent) {
	log := logger.WithContext(ctx, s.logger)
	log.Info("moderation action",
		zap.String("action", action),
		zap.String("community_id", event.CommunityID),
		zap.String("actor_id", event.ActorID),
		zap.String("target_user_id", event.TargetUserID),
		zap.String("post_id", event.PostID),
	)

	if s.observer != nil {
		s.observer.ObserveModerationAction(action)
	}
	if s.events == nil {
		return
	}

	event.EventID = uuid.NewString()
	event.OccurredAt = s.now()
	if err := s.events.PublishModerationEvent(ctx, event); err != nil {
		log.Warn("publish moderation event failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}
