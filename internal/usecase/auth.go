package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/infra/logger"
	"github.com/arklim/social-platform-trust/internal/repository"
)

// LoginInput captures a login attempt together with its context fingerprint.
type LoginInput struct {
	Identifier string
	Password   string
	Context    domain.LoginContext
}

// LoginResult is returned for logins the trust engine admitted.
type LoginResult struct {
	User        domain.User
	AccessToken string
	ExpiresAt   time.Time
	Decision    domain.TrustDecision
}

// AuthService coordinates credential checks with the context trust engine.
type AuthService struct {
	users  port.UserRepository
	hasher port.PasswordHasher
	tokens port.TokenIssuer
	trust  *ContextTrustService
	logger *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users port.UserRepository,
	hasher port.PasswordHasher,
	tokens port.TokenIssuer,
	trust *ContextTrustService,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		trust:  trust,
		logger: log,
	}
}

// Login verifies credentials, evaluates the login context and issues an access token for trusted logins.
// Suspicious and blocked logins fail with a *ContextVerificationError.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	identifier := strings.TrimSpace(in.Identifier)
	if identifier == "" {
		return LoginResult{}, validationError("identifier is required")
	}
	if in.Password == "" {
		return LoginResult{}, validationError("password is required")
	}

	log := logger.WithContext(ctx, s.logger)

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, dependencyError("lookup user", err)
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return LoginResult{}, dependencyError("verify password", err)
	}
	if !ok {
		log.Info("login rejected", zap.String("email", logger.MaskEmail(user.Email)))
		return LoginResult{}, ErrInvalidCredentials
	}

	decision, err := s.trust.Evaluate(ctx, *user, in.Context)
	if err != nil {
		return LoginResult{}, err
	}

	switch decision.Kind {
	case domain.TrustDecisionBlocked:
		return LoginResult{}, &ContextVerificationError{Err: ErrContextBlocked, Decision: decision}
	case domain.TrustDecisionSuspicious:
		return LoginResult{}, &ContextVerificationError{Err: ErrSuspiciousLogin, Decision: decision}
	}

	token, expiresAt, err := s.tokens.Issue(*user)
	if err != nil {
		return LoginResult{}, dependencyError("issue access token", err)
	}

	log.Info("login succeeded",
		zap.String("user_id", user.ID),
		zap.String("reason", decision.Reason),
	)
	return LoginResult{
		User:        user.Sanitized(),
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Decision:    decision,
	}, nil
}
