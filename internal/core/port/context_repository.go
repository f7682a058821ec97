package port

import (
	"context"

	"github.com/arklim/social-platform-trust/internal/core/domain"
)

// SuspiciousLoginFilter narrows suspicious login listings.
type SuspiciousLoginFilter string

const (
	// SuspiciousLoginFilterUntrusted selects every record that has not been confirmed, blocked or not.
	SuspiciousLoginFilterUntrusted SuspiciousLoginFilter = "untrusted"
	// SuspiciousLoginFilterPending selects records awaiting confirmation that are not blocked.
	SuspiciousLoginFilterPending SuspiciousLoginFilter = "pending"
	// SuspiciousLoginFilterBlocked selects blocked records.
	SuspiciousLoginFilterBlocked SuspiciousLoginFilter = "blocked"
)

// ContextRepository persists login context trust state.
type ContextRepository interface {
	CreateSuspiciousLogin(ctx context.Context, record domain.SuspiciousLogin) error
	GetSuspiciousLogin(ctx context.Context, id string) (*domain.SuspiciousLogin, error)
	ListSuspiciousLogins(ctx context.Context, userID string, filter SuspiciousLoginFilter) ([]domain.SuspiciousLogin, error)
	// RecordUnverifiedAttempt atomically increments the attempt counter and blocks the record
	// once the counter exceeds threshold. It returns the updated record.
	RecordUnverifiedAttempt(ctx context.Context, id string, threshold int) (*domain.SuspiciousLogin, error)
	SetBlocked(ctx context.Context, id string, blocked bool) error
	DeleteSuspiciousLogin(ctx context.Context, id string) error
	// TrustSuspiciousLogin marks the record trusted and stores its context as trusted in one transaction.
	TrustSuspiciousLogin(ctx context.Context, recordID string, trusted domain.TrustedContext) error

	CreateTrustedContext(ctx context.Context, trusted domain.TrustedContext) error
	ListTrustedContexts(ctx context.Context, userID string) ([]domain.TrustedContext, error)
	DeleteTrustedContext(ctx context.Context, userID, id string) error
}

// PreferenceRepository persists user security preferences.
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*domain.UserPreference, error)
	Upsert(ctx context.Context, pref domain.UserPreference) error
}
