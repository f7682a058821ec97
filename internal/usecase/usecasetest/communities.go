package usecasetest

import (
	"context"
	"sort"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/repository"
)

// Communities implements port.CommunityRepository.
type Communities struct{ s *Store }

// Communities returns the community repository view of the store.
func (s *Store) Communities() *Communities { return &Communities{s: s} }

func (r *Communities) Create(_ context.Context, community domain.Community) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	for _, existing := range r.s.communities {
		if existing.Name == community.Name {
			return repository.ErrDuplicate
		}
	}
	r.s.communities[community.ID] = cloneCommunity(community)
	r.s.Writes++
	return nil
}

func (r *Communities) GetByID(_ context.Context, id string) (*domain.Community, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	community, ok := r.s.communities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	community = cloneCommunity(community)
	return &community, nil
}

func (r *Communities) GetByName(_ context.Context, name string) (*domain.Community, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	for _, community := range r.s.communities {
		if community.Name == name {
			community = cloneCommunity(community)
			return &community, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Communities) List(_ context.Context, limit, offset uint64) ([]domain.Community, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	all := make([]domain.Community, 0, len(r.s.communities))
	for _, community := range r.s.communities {
		all = append(all, cloneCommunity(community))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	if offset >= uint64(len(all)) {
		return []domain.Community{}, nil
	}
	end := offset + limit
	if end > uint64(len(all)) {
		end = uint64(len(all))
	}
	return all[offset:end], nil
}

// update applies fn to the community when guard holds, mirroring a guarded UPDATE.
func (r *Communities) update(communityID string, guard func(domain.Community) bool, fn func(*domain.Community)) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	community, ok := r.s.communities[communityID]
	if !ok || !guard(community) {
		return repository.ErrConflict
	}
	community = cloneCommunity(community)
	fn(&community)
	r.s.communities[communityID] = community
	r.s.Writes++
	return nil
}

func (r *Communities) AddMember(_ context.Context, communityID, userID string) error {
	return r.update(communityID,
		func(c domain.Community) bool { return !c.IsMember(userID) && !c.IsBanned(userID) },
		func(c *domain.Community) { c.Members = append(c.Members, userID) },
	)
}

func (r *Communities) RemoveMember(_ context.Context, communityID, userID string) error {
	return r.update(communityID,
		func(c domain.Community) bool { return c.IsMember(userID) },
		func(c *domain.Community) {
			c.Members = removeValue(c.Members, userID)
			c.Moderators = removeValue(c.Moderators, userID)
			r.s.communities[c.ID] = *c
			r.s.demoteIfUnassigned(userID)
		},
	)
}

func (r *Communities) AssignModerator(_ context.Context, communityID, userID string) error {
	return r.update(communityID,
		func(c domain.Community) bool { return !c.IsModerator(userID) },
		func(c *domain.Community) {
			c.Moderators = append(c.Moderators, userID)
			if user, ok := r.s.users[userID]; ok && user.Role != domain.UserRoleAdmin {
				user.Role = domain.UserRoleModerator
				r.s.users[userID] = user
			}
		},
	)
}

func (r *Communities) RevokeModerator(_ context.Context, communityID, userID string) error {
	return r.update(communityID,
		func(c domain.Community) bool { return c.IsModerator(userID) },
		func(c *domain.Community) {
			c.Moderators = removeValue(c.Moderators, userID)
			r.s.communities[c.ID] = *c
			r.s.demoteIfUnassigned(userID)
		},
	)
}

func (r *Communities) Ban(_ context.Context, communityID, userID string) error {
	return r.update(communityID,
		func(c domain.Community) bool { return !c.IsBanned(userID) },
		func(c *domain.Community) {
			c.BannedUsers = append(c.BannedUsers, userID)
			c.Members = removeValue(c.Members, userID)
			c.Moderators = removeValue(c.Moderators, userID)
			r.s.communities[c.ID] = *c
			r.s.demoteIfUnassigned(userID)
		},
	)
}

func (r *Communities) Unban(_ context.Context, communityID, userID string) error {
	return r.update(communityID,
		func(c domain.Community) bool { return c.IsBanned(userID) },
		func(c *domain.Community) { c.BannedUsers = removeValue(c.BannedUsers, userID) },
	)
}

// Posts implements port.PostRepository.
type Posts struct{ s *Store }

// Posts returns the post repository view of the store.
func (s *Store) Posts() *Posts { return &Posts{s: s} }

func (r *Posts) Create(_ context.Context, post domain.Post) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	r.s.posts[post.ID] = post
	r.s.Writes++
	return nil
}

func (r *Posts) GetByID(_ context.Context, id string) (*domain.Post, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	post, ok := r.s.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &post, nil
}

func (r *Posts) ListByIDs(_ context.Context, ids []string) ([]domain.Post, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []domain.Post
	for _, id := range ids {
		if post, ok := r.s.posts[id]; ok {
			out = append(out, post)
		}
	}
	return out, nil
}

func (r *Posts) ListByCommunity(_ context.Context, communityID string, limit, offset uint64) ([]domain.Post, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	var all []domain.Post
	for _, post := range r.s.posts {
		if post.CommunityID == communityID {
			all = append(all, post)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= uint64(len(all)) {
		return []domain.Post{}, nil
	}
	end := offset + limit
	if end > uint64(len(all)) {
		end = uint64(len(all))
	}
	return all[offset:end], nil
}

func (r *Posts) DeleteWithReports(_ context.Context, postID string) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.posts[postID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.reports, postID)
	delete(r.s.posts, postID)
	r.s.Writes++
	return nil
}

// Reports implements port.ReportRepository.
type Reports struct{ s *Store }

// Reports returns the report repository view of the store.
func (s *Store) Reports() *Reports { return &Reports{s: s} }

func (r *Reports) AddReport(_ context.Context, report domain.Report, reason domain.ReportReason) (bool, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return false, err
	}
	existing, ok := r.s.reports[report.PostID]
	if !ok {
		r.s.reports[report.PostID] = cloneReport(report)
		r.s.Writes++
		return true, nil
	}
	if existing.HasReporter(reason.UserID) {
		return false, repository.ErrConflict
	}
	existing = cloneReport(existing)
	existing.ReportedBy = append(existing.ReportedBy, reason.UserID)
	existing.Reasons = append(existing.Reasons, reason)
	existing.UpdatedAt = reason.ReportedAt
	r.s.reports[report.PostID] = existing
	r.s.Writes++
	return false, nil
}

func (r *Reports) ListByCommunity(_ context.Context, communityID string) ([]domain.Report, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []domain.Report
	for _, report := range r.s.reports {
		if report.CommunityID == communityID {
			out = append(out, cloneReport(report))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Reports) DeleteByPost(_ context.Context, postID string) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.reports[postID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.reports, postID)
	r.s.Writes++
	return nil
}

var (
	_ port.CommunityRepository = (*Communities)(nil)
	_ port.PostRepository      = (*Posts)(nil)
	_ port.ReportRepository    = (*Reports)(nil)
)
