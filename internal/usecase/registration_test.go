package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-trust/internal/usecase/usecasetest"
)

func newRegistrationFixture(t *testing.T) (*RegistrationService, trustFixture) {
	t.Helper()

	f := newTrustFixture(t)
	svc := NewRegistrationService(f.store.Users(), usecasetest.Hasher{}, usecasetest.Policy{}, f.svc, zaptest.NewLogger(t))
	return svc, f
}

func TestRegisterUserTrustsRegistrationContext(t *testing.T) {
	svc, f := newRegistrationFixture(t)

	user, err := svc.RegisterUser(context.Background(), RegisterInput{
		Username: "bob",
		Email:    "Bob@Example.com",
		Password: "long-enough-pass",
		Context:  officeContext,
	})
	if err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}
	if user.ID == "" || user.Email != "bob@example.com" || user.Role != "general" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash != "" {
		t.Fatal("returned user must be sanitized")
	}

	stored, ok := f.store.User(user.ID)
	if !ok || stored.PasswordHash != "hashed:long-enough-pass" {
		t.Fatalf("unexpected stored user: %+v", stored)
	}

	trusted := f.store.TrustedContexts()
	if len(trusted) != 1 || trusted[0].UserID != user.ID || trusted[0].Context != officeContext {
		t.Fatalf("expected registration context to be trusted, got %+v", trusted)
	}
}

func TestRegisterUserWithoutContext(t *testing.T) {
	svc, f := newRegistrationFixture(t)

	if _, err := svc.RegisterUser(context.Background(), RegisterInput{Username: "carol", Email: "carol@example.com", Password: "long-enough-pass"}); err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}
	if len(f.store.TrustedContexts()) != 0 {
		t.Fatal("incomplete context must not be trusted")
	}
}

func TestRegisterUserRejectsDuplicates(t *testing.T) {
	svc, _ := newRegistrationFixture(t)

	cases := []RegisterInput{
		{Username: "alice", Email: "new@example.com", Password: "long-enough-pass"},
		{Username: "newname", Email: "alice@example.com", Password: "long-enough-pass"},
	}
	for _, in := range cases {
		if _, err := svc.RegisterUser(context.Background(), in); !errors.Is(err, ErrUserExists) || !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected user exists for %+v, got %v", in, err)
		}
	}
}

func TestRegisterUserValidation(t *testing.T) {
	svc, f := newRegistrationFixture(t)

	cases := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{name: "short username", in: RegisterInput{Username: "ab", Email: "x@example.com", Password: "long-enough-pass"}, want: ErrValidation},
		{name: "bad email", in: RegisterInput{Username: "dave", Email: "dave.example.com", Password: "long-enough-pass"}, want: ErrValidation},
		{name: "weak password", in: RegisterInput{Username: "dave", Email: "dave@example.com", Password: "short"}, want: ErrWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RegisterUser(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if f.store.Writes != 0 {
		t.Fatalf("expected no writes, got %d", f.store.Writes)
	}
}
