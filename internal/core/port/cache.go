package port

import (
	"context"
	"time"

	"github.com/arklim/social-platform-trust/internal/core/domain"
)

// PreferenceCache keeps recently read user preferences close to the login path.
type PreferenceCache interface {
	// GetPreference returns false when the entry is absent.
	GetPreference(ctx context.Context, userID string) (*domain.UserPreference, bool, error)
	SetPreference(ctx context.Context, pref domain.UserPreference, ttl time.Duration) error
	DeletePreference(ctx context.Context, userID string) error
}
