package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/infra/logger"
	"github.com/arklim/social-platform-trust/internal/repository"
)

// DefaultMaxUnverifiedAttempts is used when no threshold is configured.
const DefaultMaxUnverifiedAttempts = 3

// UserSnapshot carries the user attributes copied onto a suspicious login record.
type UserSnapshot struct {
	Email string
}

// ContextTrustService classifies login contexts and manages trusted and suspicious context state.
type ContextTrustService struct {
	contexts    port.ContextRepository
	preferences port.PreferenceRepository
	cache       port.PreferenceCache
	cacheTTL    time.Duration
	events      port.EventPublisher
	observer    port.TrustObserver
	threshold   int
	logger      *zap.Logger
	now         func() time.Time
}

// ContextTrustOption customises a ContextTrustService.
type ContextTrustOption func(*ContextTrustService)

// WithPreferenceCache reads preferences through cache, keeping entries for ttl.
func WithPreferenceCache(cache port.PreferenceCache, ttl time.Duration) ContextTrustOption {
	return func(s *ContextTrustService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithTrustEvents publishes trust state changes.
func WithTrustEvents(events port.EventPublisher) ContextTrustOption {
	return func(s *ContextTrustService) { s.events = events }
}

// WithTrustObserver records every decision.
func WithTrustObserver(observer port.TrustObserver) ContextTrustOption {
	return func(s *ContextTrustService) { s.observer = observer }
}

// NewContextTrustService constructs a ContextTrustService. A non-positive threshold selects DefaultMaxUnverifiedAttempts.
func NewContextTrustService(
	contexts port.ContextRepository,
	preferences port.PreferenceRepository,
	threshold int,
	log *zap.Logger,
	opts ...ContextTrustOption,
) *ContextTrustService {
	if threshold <= 0 {
		threshold = DefaultMaxUnverifiedAttempts
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &ContextTrustService{
		contexts:    contexts,
		preferences: preferences,
		threshold:   threshold,
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddSuspiciousLogin records a first sighting of a context for the user.
// Every input is validated before anything is written. An unknown user yields
// ErrUserNotFound and an already pending context ErrSuspiciousLoginExists.
func (s *ContextTrustService) AddSuspiciousLogin(ctx context.Context, userID string, user UserSnapshot, lc domain.LoginContext) (domain.SuspiciousLogin, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.SuspiciousLogin{}, validationError("user id is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return domain.SuspiciousLogin{}, validationError("user email is required")
	}
	if missing := lc.MissingFields(); len(missing) > 0 {
		return domain.SuspiciousLogin{}, validationError("missing login context fields: %s", strings.Join(missing, ", "))
	}

	now := s.now()
	record := domain.SuspiciousLogin{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     strings.TrimSpace(user.Email),
		Context:   lc,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.contexts.CreateSuspiciousLogin(ctx, record); err != nil {
		switch {
		case errors.Is(err, repository.ErrMissingReference):
			return domain.SuspiciousLogin{}, ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return domain.SuspiciousLogin{}, ErrSuspiciousLoginExists
		}
		return domain.SuspiciousLogin{}, dependencyError("create suspicious login", err)
	}
	return record, nil
}

// Evaluate decides whether a login from lc may proceed for an already authenticated user.
func (s *ContextTrustService) Evaluate(ctx context.Context, user domain.User, lc domain.LoginContext) (domain.TrustDecision, error) {
	log := logger.WithContext(ctx, s.logger).With(zap.String("user_id", user.ID))

	trusted, err := s.contexts.ListTrustedContexts(ctx, user.ID)
	if err != nil {
		return domain.TrustDecision{}, dependencyError("list trusted contexts", err)
	}

	enabled, err := s.contextAuthEnabled(ctx, user.ID)
	if err != nil {
		return domain.TrustDecision{}, err
	}
	if !enabled {
		return s.decide(domain.TrustDecisionTrusted, domain.TrustReasonContextAuthDisabled, nil), nil
	}

	if domain.MatchesAnyTrusted(trusted, lc) {
		return s.decide(domain.TrustDecisionTrusted, domain.TrustReasonTrustedContext, nil), nil
	}

	return s.classifyUntrusted(ctx, log, user, lc, true)
}

// classifyUntrusted decides a context outside the trusted set. When a concurrent login
// invalidates what was listed, the context is classified once more with retry unset.
func (s *ContextTrustService) classifyUntrusted(ctx context.Context, log *zap.Logger, user domain.User, lc domain.LoginContext, retry bool) (domain.TrustDecision, error) {
	records, err := s.contexts.ListSuspiciousLogins(ctx, user.ID, port.SuspiciousLoginFilterUntrusted)
	if err != nil {
		return domain.TrustDecision{}, dependencyError("list suspicious logins", err)
	}

	for i := range records {
		record := records[i]
		if !domain.ContextMatches(record.Context, lc) {
			continue
		}

		if record.IsBlocked {
			log.Warn("login from blocked context", zap.String("record_id", record.ID), zap.String("ip", logger.MaskIP(lc.IP)))
			return s.decide(domain.TrustDecisionBlocked, domain.TrustReasonContextBlocked, &record), nil
		}

		updated, err := s.contexts.RecordUnverifiedAttempt(ctx, record.ID, s.threshold)
		if errors.Is(err, repository.ErrNotFound) && retry {
			// Confirmed or deleted since it was listed.
			log.Debug("suspicious login changed during evaluation", zap.String("record_id", record.ID))
			return s.reevaluate(ctx, log, user, lc)
		}
		if err != nil {
			return domain.TrustDecision{}, dependencyError("record unverified attempt", err)
		}
		if updated.IsBlocked {
			log.Warn("login context blocked after repeated attempts",
				zap.String("record_id", updated.ID),
				zap.Int("attempts", updated.UnverifiedAttempts),
				zap.String("ip", logger.MaskIP(lc.IP)),
			)
			s.publish(ctx, domain.TrustEventLoginContextBlocked, *updated)
			return s.decide(domain.TrustDecisionBlocked, domain.TrustReasonAttemptsExceeded, updated), nil
		}
		return s.decide(domain.TrustDecisionSuspicious, domain.TrustReasonRepeatedContext, updated), nil
	}

	record, err := s.AddSuspiciousLogin(ctx, user.ID, UserSnapshot{Email: user.Email}, lc)
	if errors.Is(err, ErrSuspiciousLoginExists) && retry {
		// Another login recorded this context first; count this one against it.
		return s.classifyUntrusted(ctx, log, user, lc, false)
	}
	if err != nil {
		return domain.TrustDecision{}, err
	}
	log.Info("suspicious login recorded", zap.String("record_id", record.ID), zap.String("ip", logger.MaskIP(lc.IP)))
	s.publish(ctx, domain.TrustEventSuspiciousLoginDetected, record)
	return s.decide(domain.TrustDecisionSuspicious, domain.TrustReasonNewContext, &record), nil
}

func (s *ContextTrustService) reevaluate(ctx context.Context, log *zap.Logger, user domain.User, lc domain.LoginContext) (domain.TrustDecision, error) {
	trusted, err := s.contexts.ListTrustedContexts(ctx, user.ID)
	if err != nil {
		return domain.TrustDecision{}, dependencyError("list trusted contexts", err)
	}
	if domain.MatchesAnyTrusted(trusted, lc) {
		return s.decide(domain.TrustDecisionTrusted, domain.TrustReasonTrustedContext, nil), nil
	}
	return s.classifyUntrusted(ctx, log, user, lc, false)
}

func (s *ContextTrustService) decide(kind domain.TrustDecisionKind, reason string, record *domain.SuspiciousLogin) domain.TrustDecision {
	if s.observer != nil {
		s.observer.ObserveDecision(string(kind), reason)
	}
	return domain.TrustDecision{Kind: kind, Reason: reason, Record: record}
}

func (s *ContextTrustService) contextAuthEnabled(ctx context.Context, userID string) (bool, error) {
	pref, err := s.GetPreference(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrPreferenceNotFound) {
			return false, nil
		}
		return false, err
	}
	return pref.EnableContextBasedAuth, nil
}

// ConfirmSuspiciousLogin marks the user's record as trusted and adds its context to the trusted set.
func (s *ContextTrustService) ConfirmSuspiciousLogin(ctx context.Context, userID, recordID string) (domain.TrustedContext, error) {
	record, err := s.ownedRecord(ctx, userID, recordID)
	if err != nil {
		return domain.TrustedContext{}, err
	}
	switch {
	case record.IsBlocked:
		return domain.TrustedContext{}, ErrLoginBlocked
	case record.IsTrusted:
		return domain.TrustedContext{}, ErrLoginAlreadyTrusted
	}

	trusted := domain.TrustedContext{
		ID:        uuid.NewString(),
		UserID:    record.UserID,
		Email:     record.Email,
		Context:   record.Context,
		CreatedAt: s.now(),
	}
	if err := s.contexts.TrustSuspiciousLogin(ctx, record.ID, trusted); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.TrustedContext{}, ErrLoginBlocked
		}
		return domain.TrustedContext{}, dependencyError("trust suspicious login", err)
	}

	logger.WithContext(ctx, s.logger).Info("suspicious login confirmed",
		zap.String("user_id", userID),
		zap.String("record_id", record.ID),
	)
	record.IsTrusted = true
	record.UnverifiedAttempts = 0
	s.publish(ctx, domain.TrustEventContextTrusted, *record)
	return trusted, nil
}

// SaveTrustedContext stores lc as trusted for the user.
func (s *ContextTrustService) SaveTrustedContext(ctx context.Context, userID, email string, lc domain.LoginContext) (domain.TrustedContext, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.TrustedContext{}, validationError("user id is required")
	}
	if missing := lc.MissingFields(); len(missing) > 0 {
		return domain.TrustedContext{}, validationError("missing login context fields: %s", strings.Join(missing, ", "))
	}

	trusted := domain.TrustedContext{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		Context:   lc,
		CreatedAt: s.now(),
	}
	if err := s.contexts.CreateTrustedContext(ctx, trusted); err != nil {
		return domain.TrustedContext{}, dependencyError("create trusted context", err)
	}
	return trusted, nil
}

// ListTrustedContexts returns the user's trusted contexts.
func (s *ContextTrustService) ListTrustedContexts(ctx context.Context, userID string) ([]domain.TrustedContext, error) {
	trusted, err := s.contexts.ListTrustedContexts(ctx, userID)
	if err != nil {
		return nil, dependencyError("list trusted contexts", err)
	}
	return trusted, nil
}

// ListSuspiciousLogins returns records awaiting confirmation.
func (s *ContextTrustService) ListSuspiciousLogins(ctx context.Context, userID string) ([]domain.SuspiciousLogin, error) {
	return s.listRecords(ctx, userID, port.SuspiciousLoginFilterPending)
}

// ListBlockedLogins returns blocked records.
func (s *ContextTrustService) ListBlockedLogins(ctx context.Context, userID string) ([]domain.SuspiciousLogin, error) {
	return s.listRecords(ctx, userID, port.SuspiciousLoginFilterBlocked)
}

func (s *ContextTrustService) listRecords(ctx context.Context, userID string, filter port.SuspiciousLoginFilter) ([]domain.SuspiciousLogin, error) {
	records, err := s.contexts.ListSuspiciousLogins(ctx, userID, filter)
	if err != nil {
		return nil, dependencyError("list suspicious logins", err)
	}
	return records, nil
}

// BlockSuspiciousLogin blocks a record on the owner's request.
func (s *ContextTrustService) BlockSuspiciousLogin(ctx context.Context, userID, recordID string) error {
	record, err := s.ownedRecord(ctx, userID, recordID)
	if err != nil {
		return err
	}
	switch {
	case record.IsTrusted:
		return ErrLoginAlreadyTrusted
	case record.IsBlocked:
		return ErrLoginBlocked
	}

	if err := s.setBlocked(ctx, record.ID, true); err != nil {
		return err
	}
	record.IsBlocked = true
	s.publish(ctx, domain.TrustEventLoginContextBlocked, *record)
	return nil
}

// UnblockSuspiciousLogin lifts a block and resets the attempt counter.
func (s *ContextTrustService) UnblockSuspiciousLogin(ctx context.Context, userID, recordID string) error {
	record, err := s.ownedRecord(ctx, userID, recordID)
	if err != nil {
		return err
	}
	if !record.IsBlocked {
		return ErrLoginNotBlocked
	}
	return s.setBlocked(ctx, record.ID, false)
}

func (s *ContextTrustService) setBlocked(ctx context.Context, id string, blocked bool) error {
	if err := s.contexts.SetBlocked(ctx, id, blocked); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSuspiciousLoginNotFound
		}
		return dependencyError("update suspicious login", err)
	}
	return nil
}

// DeleteSuspiciousLogin removes one of the user's records.
func (s *ContextTrustService) DeleteSuspiciousLogin(ctx context.Context, userID, recordID string) error {
	record, err := s.ownedRecord(ctx, userID, recordID)
	if err != nil {
		return err
	}
	if err := s.contexts.DeleteSuspiciousLogin(ctx, record.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSuspiciousLoginNotFound
		}
		return dependencyError("delete suspicious login", err)
	}
	return nil
}

// DeleteTrustedContext removes one of the user's trusted contexts.
func (s *ContextTrustService) DeleteTrustedContext(ctx context.Context, userID, id string) error {
	if err := s.contexts.DeleteTrustedContext(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTrustedContextNotFound
		}
		return dependencyError("delete trusted context", err)
	}
	return nil
}

// ownedRecord loads a record and hides records belonging to other users.
func (s *ContextTrustService) ownedRecord(ctx context.Context, userID, recordID string) (*domain.SuspiciousLogin, error) {
	if strings.TrimSpace(recordID) == "" {
		return nil, validationError("suspicious login id is required")
	}
	record, err := s.contexts.GetSuspiciousLogin(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSuspiciousLoginNotFound
		}
		return nil, dependencyError("get suspicious login", err)
	}
	if record.UserID != userID {
		return nil, ErrSuspiciousLoginNotFound
	}
	return record, nil
}

// GetPreference returns the user's preference. A user who never saved one gets ErrPreferenceNotFound.
func (s *ContextTrustService) GetPreference(ctx context.Context, userID string) (domain.UserPreference, error) {
	log := logger.WithContext(ctx, s.logger)

	if s.cache != nil {
		pref, ok, err := s.cache.GetPreference(ctx, userID)
		switch {
		case err != nil:
			log.Warn("preference cache read failed", zap.String("user_id", userID), zap.Error(err))
		case ok:
			return *pref, nil
		}
	}

	pref, err := s.preferences.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.UserPreference{}, ErrPreferenceNotFound
		}
		return domain.UserPreference{}, dependencyError("get preference", err)
	}

	if s.cache != nil {
		if err := s.cache.SetPreference(ctx, *pref, s.cacheTTL); err != nil {
			log.Warn("preference cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return *pref, nil
}

// UpdatePreference creates or replaces the user's preference and drops the cached copy.
func (s *ContextTrustService) UpdatePreference(ctx context.Context, userID string, enableContextBasedAuth bool) (domain.UserPreference, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.UserPreference{}, validationError("user id is required")
	}

	pref := domain.UserPreference{
		UserID:                 userID,
		EnableContextBasedAuth: enableContextBasedAuth,
		UpdatedAt:              s.now(),
	}
	if err := s.preferences.Upsert(ctx, pref); err != nil {
		return domain.UserPreference{}, dependencyError("upsert preference", err)
	}

	if s.cache != nil {
		if err := s.cache.DeletePreference(ctx, userID); err != nil {
			logger.WithContext(ctx, s.logger).Warn("preference cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return pref, nil
}

func (s *ContextTrustService) publish(ctx context.Context, eventType domain.TrustEventType, record domain.SuspiciousLogin) {
	if s.events == nil {
		return
	}
	event := domain.TrustEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		UserID:     record.UserID,
		RecordID:   record.ID,
		Attempts:   record.UnverifiedAttempts,
		MaskedIP:   logger.MaskIP(record.Context.IP),
		Country:    record.Context.Country,
		OccurredAt: s.now(),
	}
	if err := s.events.PublishTrustEvent(ctx, event); err != nil {
		logger.WithContext(ctx, s.logger).Warn("publish trust event failed",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}
