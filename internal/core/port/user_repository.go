package port

import (
	"context"

	"github.com/arklim/social-platform-trust/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByIdentifier resolves a user by username or email.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.UserRole) error
}
