package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arklim/social-platform-trust/internal/core/domain"
)

func newTestTokenManager(t *testing.T, now time.Time) *TokenManager {
	t.Helper()

	manager, err := NewTokenManager("test-secret", "trust-service", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}
	manager.now = func() time.Time { return now }
	return manager
}

func TestTokenManagerIssueAndParse(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	manager := newTestTokenManager(t, now)

	token, expiresAt, err := manager.Issue(domain.User{ID: "user-1", Role: domain.UserRoleModerator})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !expiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", expiresAt)
	}

	claims, err := manager.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != string(domain.UserRoleModerator) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected a token id")
	}
}

func TestTokenManagerRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Now().UTC().Add(-time.Hour)
	manager := newTestTokenManager(t, issuedAt)

	token, _, err := manager.Issue(domain.User{ID: "user-1", Role: domain.UserRoleGeneral})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	manager.now = func() time.Time { return issuedAt.Add(time.Hour) }
	if _, err := manager.Parse(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenManagerRejectsForeignTokens(t *testing.T) {
	now := time.Now().UTC()
	manager := newTestTokenManager(t, now)

	other, _ := NewTokenManager("other-secret", "trust-service", time.Minute)
	foreign, _, _ := other.Issue(domain.User{ID: "user-1", Role: domain.UserRoleAdmin})
	if _, err := manager.Parse(foreign); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong secret, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "trust-service",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := manager.Parse(unsigned); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for alg none, got %v", err)
	}

	if _, err := manager.Parse("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

func TestNewTokenManagerValidates(t *testing.T) {
	if _, err := NewTokenManager("", "iss", time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewTokenManager("secret", "iss", 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
