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

const (
	maxCommunityNameLength = 64
	maxPostLength          = 10000
	defaultPageSize        = 20
	maxPageSize            = 100
)

// CommunityService manages communities, membership and posts.
type CommunityService struct {
	communities port.CommunityRepository
	users       port.UserRepository
	posts       port.PostRepository
	logger      *zap.Logger
}

// NewCommunityService constructs a CommunityService.
func NewCommunityService(communities port.CommunityRepository, users port.UserRepository, posts port.PostRepository, log *zap.Logger) *CommunityService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommunityService{communities: communities, users: users, posts: posts, logger: log}
}

// CreateCommunity creates a community with the creator as its first member.
func (s *CommunityService) CreateCommunity(ctx context.Context, creatorID, name, description string) (domain.Community, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxCommunityNameLength {
		return domain.Community{}, validationError("community name must be between 1 and %d characters", maxCommunityNameLength)
	}

	if _, err := loadUser(ctx, s.users, creatorID); err != nil {
		return domain.Community{}, err
	}

	community := domain.Community{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Members:     []string{creatorID},
		Moderators:  []string{},
		BannedUsers: []string{},
		RuleIDs:     []string{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.communities.Create(ctx, community); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Community{}, ErrCommunityExists
		}
		return domain.Community{}, dependencyError("create community", err)
	}

	logger.WithContext(ctx, s.logger).Info("community created",
		zap.String("community_id", community.ID),
		zap.String("creator_id", creatorID),
	)
	return community, nil
}

// GetCommunity looks a community up by name.
func (s *CommunityService) GetCommunity(ctx context.Context, name string) (domain.Community, error) {
	community, err := loadCommunityByName(ctx, s.communities, name)
	if err != nil {
		return domain.Community{}, err
	}
	return *community, nil
}

// ListCommunities pages through communities ordered by name.
func (s *CommunityService) ListCommunities(ctx context.Context, limit, offset uint64) ([]domain.Community, error) {
	communities, err := s.communities.List(ctx, pageSize(limit), offset)
	if err != nil {
		return nil, dependencyError("list communities", err)
	}
	return communities, nil
}

// JoinCommunity adds the user to the community members.
func (s *CommunityService) JoinCommunity(ctx context.Context, name, userID string) error {
	community, err := loadCommunityByName(ctx, s.communities, name)
	if err != nil {
		return err
	}
	if _, err := loadUser(ctx, s.users, userID); err != nil {
		return err
	}
	switch {
	case community.IsBanned(userID):
		return ErrUserBanned
	case community.IsMember(userID):
		return ErrAlreadyMember
	}

	if err := s.communities.AddMember(ctx, community.ID, userID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrAlreadyMember
		}
		return dependencyError("add member", err)
	}
	return nil
}

// LeaveCommunity removes the user from members and moderators, demoting them
// when no other community lists them as a moderator.
func (s *CommunityService) LeaveCommunity(ctx context.Context, name, userID string) error {
	community, err := loadCommunityByName(ctx, s.communities, name)
	if err != nil {
		return err
	}
	if !community.IsMember(userID) {
		return ErrNotMember
	}

	if err := s.communities.RemoveMember(ctx, community.ID, userID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrNotMember
		}
		return dependencyError("remove member", err)
	}
	return nil
}

// CreatePost publishes content in a community the author belongs to.
func (s *CommunityService) CreatePost(ctx context.Context, communityName, authorID, content string) (domain.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > maxPostLength {
		return domain.Post{}, validationError("post content must be between 1 and %d characters", maxPostLength)
	}

	community, err := loadCommunityByName(ctx, s.communities, communityName)
	if err != nil {
		return domain.Post{}, err
	}
	switch {
	case community.IsBanned(authorID):
		return domain.Post{}, ErrUserBanned
	case !community.IsMember(authorID):
		return domain.Post{}, ErrNotMember
	}

	post := domain.Post{
		ID:          uuid.NewString(),
		CommunityID: community.ID,
		AuthorID:    authorID,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return domain.Post{}, dependencyError("create post", err)
	}
	return post, nil
}

// ListPosts pages through a community's posts, newest first.
func (s *CommunityService) ListPosts(ctx context.Context, communityName string, limit, offset uint64) ([]domain.Post, error) {
	community, err := loadCommunityByName(ctx, s.communities, communityName)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByCommunity(ctx, community.ID, pageSize(limit), offset)
	if err != nil {
		return nil, dependencyError("list posts", err)
	}
	return posts, nil
}

// ListModerators resolves the moderators of a community.
func (s *CommunityService) ListModerators(ctx context.Context, name string) ([]domain.User, error) {
	community, err := loadCommunityByName(ctx, s.communities, name)
	if err != nil {
		return nil, err
	}

	moderators := make([]domain.User, 0, len(community.Moderators))
	for _, id := range community.Moderators {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, dependencyError("get moderator", err)
		}
		moderators = append(moderators, user.Sanitized())
	}
	return moderators, nil
}

func pageSize(limit uint64) uint64 {
	switch {
	case limit == 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	}
	return limit
}

func loadCommunityByName(ctx context.Context, communities port.CommunityRepository, name string) (*domain.Community, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("community name is required")
	}
	community, err := communities.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommunityNotFound
		}
		return nil, dependencyError("get community", err)
	}
	return community, nil
}

func loadUser(ctx context.Context, users port.UserRepository, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationError("user id is required")
	}
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, dependencyError("get user", err)
	}
	return user, nil
}
