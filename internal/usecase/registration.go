package usecase

import (
	"context"
	"errors"
	"fmt"
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
	minUsernameLength = 3
	maxUsernameLength = 32
)

// RegisterInput captures the payload for a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Context  domain.LoginContext
}

// RegistrationService creates accounts.
type RegistrationService struct {
	users  port.UserRepository
	hasher port.PasswordHasher
	policy port.PasswordPolicyValidator
	trust  *ContextTrustService
	logger *zap.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(
	users port.UserRepository,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
	trust *ContextTrustService,
	log *zap.Logger,
) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{users: users, hasher: hasher, policy: policy, trust: trust, logger: log}
}

// RegisterUser creates a general user and trusts the registration context when it is complete.
func (s *RegistrationService) RegisterUser(ctx context.Context, in RegisterInput) (domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return domain.User{}, validationError("username must be between %d and %d characters", minUsernameLength, maxUsernameLength)
	}
	if local, domainPart, ok := strings.Cut(email, "@"); !ok || local == "" || domainPart == "" {
		return domain.User{}, validationError("email is invalid")
	}
	if err := s.policy.Validate(in.Password, username, email); err != nil {
		return domain.User{}, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	for _, identifier := range []string{username, email} {
		_, err := s.users.GetByIdentifier(ctx, identifier)
		switch {
		case err == nil:
			return domain.User{}, ErrUserExists
		case !errors.Is(err, repository.ErrNotFound):
			return domain.User{}, dependencyError("lookup user", err)
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, dependencyError("hash password", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.UserRoleGeneral,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, dependencyError("create user", err)
	}

	log := logger.WithContext(ctx, s.logger).With(zap.String("user_id", user.ID))
	log.Info("user registered", zap.String("email", logger.MaskEmail(email)))

	if in.Context.Complete() {
		if _, err := s.trust.SaveTrustedContext(ctx, user.ID, user.Email, in.Context); err != nil {
			log.Warn("registration context not trusted", zap.Error(err))
		}
	}

	return user.Sanitized(), nil
}
