// Package usecasetest provides in-memory implementations of the service ports for tests.
package usecasetest

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/repository"
)

// Store keeps every entity in memory and mirrors the guarded write semantics of the SQL repositories.
type Store struct {
	mu sync.Mutex

	users       map[string]domain.User
	suspicious  map[string]domain.SuspiciousLogin
	trusted     []domain.TrustedContext
	preferences map[string]domain.UserPreference
	communities map[string]domain.Community
	posts       map[string]domain.Post
	reports     map[string]domain.Report

	// Err, when set, is returned by every repository call.
	Err error
	// Writes counts successful mutations.
	Writes int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		suspicious:  make(map[string]domain.SuspiciousLogin),
		preferences: make(map[string]domain.UserPreference),
		communities: make(map[string]domain.Community),
		posts:       make(map[string]domain.Post),
		reports:     make(map[string]domain.Report),
	}
}

func (s *Store) lock() (func(), error) {
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return func() {}, s.Err
	}
	return s.mu.Unlock, nil
}

// PutUser seeds a user.
func (s *Store) PutUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// User returns the stored user.
func (s *Store) User(id string) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	return user, ok
}

// PutCommunity seeds a community.
func (s *Store) PutCommunity(community domain.Community) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.communities[community.ID] = cloneCommunity(community)
}

// Community returns the stored community.
func (s *Store) Community(id string) (domain.Community, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	community, ok := s.communities[id]
	return cloneCommunity(community), ok
}

// PutPost seeds a post.
func (s *Store) PutPost(post domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = post
}

// Post returns the stored post.
func (s *Store) Post(id string) (domain.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	return post, ok
}

// PutReport seeds a report.
func (s *Store) PutReport(report domain.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.PostID] = cloneReport(report)
}

// Report returns the report filed against a post.
func (s *Store) Report(postID string) (domain.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[postID]
	return cloneReport(report), ok
}

// PutSuspiciousLogin seeds a suspicious login record.
func (s *Store) PutSuspiciousLogin(record domain.SuspiciousLogin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspicious[record.ID] = record
}

// SuspiciousLogins returns every record in creation order.
func (s *Store) SuspiciousLogins() []domain.SuspiciousLogin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedSuspicious(func(domain.SuspiciousLogin) bool { return true })
}

// PutTrustedContext seeds a trusted context.
func (s *Store) PutTrustedContext(trusted domain.TrustedContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trusted = append(s.trusted, trusted)
}

// TrustedContexts returns every trusted context.
func (s *Store) TrustedContexts() []domain.TrustedContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.trusted)
}

// PutPreference seeds a preference.
func (s *Store) PutPreference(pref domain.UserPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[pref.UserID] = pref
}

func (s *Store) sortedSuspicious(keep func(domain.SuspiciousLogin) bool) []domain.SuspiciousLogin {
	var out []domain.SuspiciousLogin
	for _, record := range s.suspicious {
		if keep(record) {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// demoteIfUnassigned must be called with the lock held.
func (s *Store) demoteIfUnassigned(userID string) {
	user, ok := s.users[userID]
	if !ok || user.Role != domain.UserRoleModerator {
		return
	}
	for _, community := range s.communities {
		if community.IsModerator(userID) {
			return
		}
	}
	user.Role = domain.UserRoleGeneral
	s.users[userID] = user
}

func cloneCommunity(c domain.Community) domain.Community {
	c.Members = slices.Clone(c.Members)
	c.Moderators = slices.Clone(c.Moderators)
	c.BannedUsers = slices.Clone(c.BannedUsers)
	c.RuleIDs = slices.Clone(c.RuleIDs)
	return c
}

func cloneReport(r domain.Report) domain.Report {
	r.ReportedBy = slices.Clone(r.ReportedBy)
	r.Reasons = slices.Clone(r.Reasons)
	return r
}

func removeValue(values []string, v string) []string {
	return slices.DeleteFunc(slices.Clone(values), func(x string) bool { return x == v })
}

// Users implements port.UserRepository.
type Users struct{ s *Store }

// Users returns the user repository view of the store.
func (s *Store) Users() *Users { return &Users{s: s} }

func (r *Users) Create(_ context.Context, user domain.User) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	for _, existing := range r.s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.s.users[user.ID] = user
	r.s.Writes++
	return nil
}

func (r *Users) GetByID(_ context.Context, id string) (*domain.User, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *Users) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	for _, user := range r.s.users {
		if user.Username == identifier || user.Email == identifier {
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) UpdateRole(_ context.Context, id string, role domain.UserRole) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Role = role
	r.s.users[id] = user
	r.s.Writes++
	return nil
}

// Contexts implements port.ContextRepository.
type Contexts struct{ s *Store }

// Contexts returns the context repository view of the store.
func (s *Store) Contexts() *Contexts { return &Contexts{s: s} }

func (r *Contexts) CreateSuspiciousLogin(_ context.Context, record domain.SuspiciousLogin) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.users[record.UserID]; !ok {
		return repository.ErrMissingReference
	}
	if _, exists := r.s.suspicious[record.ID]; exists {
		return repository.ErrDuplicate
	}
	for _, existing := range r.s.suspicious {
		if existing.UserID == record.UserID && !existing.IsTrusted && existing.Context == record.Context {
			return repository.ErrDuplicate
		}
	}
	r.s.suspicious[record.ID] = record
	r.s.Writes++
	return nil
}

func (r *Contexts) GetSuspiciousLogin(_ context.Context, id string) (*domain.SuspiciousLogin, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	record, ok := r.s.suspicious[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &record, nil
}

func (r *Contexts) ListSuspiciousLogins(_ context.Context, userID string, filter port.SuspiciousLoginFilter) ([]domain.SuspiciousLogin, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	return r.s.sortedSuspicious(func(record domain.SuspiciousLogin) bool {
		if record.UserID != userID {
			return false
		}
		switch filter {
		case port.SuspiciousLoginFilterUntrusted:
			return !record.IsTrusted
		case port.SuspiciousLoginFilterPending:
			return !record.IsTrusted && !record.IsBlocked
		case port.SuspiciousLoginFilterBlocked:
			return record.IsBlocked
		}
		return true
	}), nil
}

func (r *Contexts) RecordUnverifiedAttempt(_ context.Context, id string, threshold int) (*domain.SuspiciousLogin, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	record, ok := r.s.suspicious[id]
	if !ok || record.IsTrusted {
		return nil, repository.ErrNotFound
	}
	record.UnverifiedAttempts++
	record.IsBlocked = record.IsBlocked || domain.AttemptsExceeded(record.UnverifiedAttempts, threshold)
	record.UpdatedAt = time.Now().UTC()
	r.s.suspicious[id] = record
	r.s.Writes++
	return &record, nil
}

func (r *Contexts) SetBlocked(_ context.Context, id string, blocked bool) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	record, ok := r.s.suspicious[id]
	if !ok {
		return repository.ErrNotFound
	}
	record.IsBlocked = blocked
	if !blocked {
		record.UnverifiedAttempts = 0
	}
	r.s.suspicious[id] = record
	r.s.Writes++
	return nil
}

func (r *Contexts) DeleteSuspiciousLogin(_ context.Context, id string) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.suspicious[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.suspicious, id)
	r.s.Writes++
	return nil
}

func (r *Contexts) TrustSuspiciousLogin(_ context.Context, recordID string, trusted domain.TrustedContext) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	record, ok := r.s.suspicious[recordID]
	if !ok || record.IsTrusted || record.IsBlocked {
		return repository.ErrConflict
	}
	record.IsTrusted = true
	record.UnverifiedAttempts = 0
	r.s.suspicious[recordID] = record
	r.s.insertTrusted(trusted)
	r.s.Writes++
	return nil
}

func (r *Contexts) CreateTrustedContext(_ context.Context, trusted domain.TrustedContext) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	r.s.insertTrusted(trusted)
	r.s.Writes++
	return nil
}

// insertTrusted ignores fingerprints the user already trusts.
func (s *Store) insertTrusted(trusted domain.TrustedContext) {
	for _, existing := range s.trusted {
		if existing.UserID == trusted.UserID && domain.ContextMatches(existing.Context, trusted.Context) {
			return
		}
	}
	s.trusted = append(s.trusted, trusted)
}

func (r *Contexts) ListTrustedContexts(_ context.Context, userID string) ([]domain.TrustedContext, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []domain.TrustedContext
	for _, trusted := range r.s.trusted {
		if trusted.UserID == userID {
			out = append(out, trusted)
		}
	}
	return out, nil
}

func (r *Contexts) DeleteTrustedContext(_ context.Context, userID, id string) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	for i, trusted := range r.s.trusted {
		if trusted.ID == id && trusted.UserID == userID {
			r.s.trusted = slices.Delete(r.s.trusted, i, i+1)
			r.s.Writes++
			return nil
		}
	}
	return repository.ErrNotFound
}

// Preferences implements port.PreferenceRepository.
type Preferences struct{ s *Store }

// Preferences returns the preference repository view of the store.
func (s *Store) Preferences() *Preferences { return &Preferences{s: s} }

func (r *Preferences) Get(_ context.Context, userID string) (*domain.UserPreference, error) {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return nil, err
	}
	pref, ok := r.s.preferences[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &pref, nil
}

func (r *Preferences) Upsert(_ context.Context, pref domain.UserPreference) error {
	unlock, err := r.s.lock()
	defer unlock()
	if err != nil {
		return err
	}
	r.s.preferences[pref.UserID] = pref
	r.s.Writes++
	return nil
}

var (
	_ port.UserRepository       = (*Users)(nil)
	_ port.ContextRepository    = (*Contexts)(nil)
	_ port.PreferenceRepository = (*Preferences)(nil)
)
