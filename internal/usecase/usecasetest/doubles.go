package usecasetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
)

// Events records published events.
type Events struct {
	mu         sync.Mutex
	Moderation []domain.ModerationEvent
	Trust      []domain.TrustEvent
	Err        error
}

func (e *Events) PublishModerationEvent(_ context.Context, event domain.ModerationEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Moderation = append(e.Moderation, event)
	return e.Err
}

func (e *Events) PublishTrustEvent(_ context.Context, event domain.TrustEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Trust = append(e.Trust, event)
	return e.Err
}

// Observer counts observed decisions and actions.
type Observer struct {
	mu        sync.Mutex
	Decisions []string
	Actions   []string
}

func (o *Observer) ObserveDecision(kind, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Decisions = append(o.Decisions, kind+"/"+reason)
}

func (o *Observer) ObserveModerationAction(action string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Actions = append(o.Actions, action)
}

const hashPrefix = "hashed:"

// Hasher is a reversible stand-in for the Argon2 hasher.
type Hasher struct{}

func (Hasher) Hash(password string) (string, error) { return hashPrefix + password, nil }

func (Hasher) Verify(password, encoded string) (bool, error) {
	if !strings.HasPrefix(encoded, hashPrefix) {
		return false, errors.New("malformed hash")
	}
	return encoded == hashPrefix+password, nil
}

// Tokens issues predictable tokens.
type Tokens struct {
	TTL time.Duration
}

func (t Tokens) Issue(user domain.User) (string, time.Time, error) {
	ttl := t.TTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return "token-" + user.ID, time.Now().Add(ttl), nil
}

// Policy rejects passwords shorter than eight characters.
type Policy struct{}

func (Policy) Validate(password string, _ ...string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	return nil
}

var (
	_ port.EventPublisher          = (*Events)(nil)
	_ port.TrustObserver           = (*Observer)(nil)
	_ port.ModerationObserver      = (*Observer)(nil)
	_ port.PasswordHasher          = Hasher{}
	_ port.TokenIssuer             = Tokens{}
	_ port.PasswordPolicyValidator = Policy{}
)
