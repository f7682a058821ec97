package postgres

import "time"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users       *UserRepository
	Contexts    *ContextRepository
	Preferences *PreferenceRepository
	Communities *CommunityRepository
	Posts       *PostRepository
	Reports     *ReportRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(db pgDB, queryTimeout time.Duration) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(db, queryTimeout),
		Contexts:    NewContextRepository(db, queryTimeout),
		Preferences: NewPreferenceRepository(db, queryTimeout),
		Communities: NewCommunityRepository(db, queryTimeout),
		Posts:       NewPostRepository(db, queryTimeout),
		Reports:     NewReportRepository(db, queryTimeout),
	}
}
