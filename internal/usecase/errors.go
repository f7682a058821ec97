package usecase

import (
	"errors"
	"fmt"

	"github.com/arklim/social-platform-trust/internal/core/domain"
)

// Error kinds. Every error returned by the services wraps exactly one of them,
// so callers can map failures with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyExists   = errors.New("already exists")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrDependency      = errors.New("dependency failure")
)

// Error is a user-safe failure of a single kind.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func validationError(format string, args ...any) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

// dependencyError wraps a storage or broker failure. The message is internal and must not reach clients.
func dependencyError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependency, op, err)
}

var (
	ErrUserNotFound      = newError(ErrNotFound, "user not found")
	ErrCommunityNotFound = newError(ErrNotFound, "community not found")
	ErrPostNotFound      = newError(ErrNotFound, "post not found")
	ErrReportNotFound    = newError(ErrNotFound, "report not found")

	ErrNotModerator         = newError(ErrForbidden, "user is not a moderator of this community")
	ErrUserBanned           = newError(ErrForbidden, "user is banned from this community")
	ErrAlreadyModerator     = newError(ErrConflict, "user is already a moderator of this community")
	ErrModeratorNotAssigned = newError(ErrConflict, "user is not a moderator of this community")
	ErrNotMember            = newError(ErrValidation, "user is not a member of this community")
	ErrAlreadyMember        = newError(ErrConflict, "user is already a member of this community")
	ErrAlreadyBanned        = newError(ErrConflict, "user is already banned from this community")
	ErrNotBanned            = newError(ErrConflict, "user is not banned from this community")
	ErrAlreadyReported      = newError(ErrConflict, "post already reported by this user")
	ErrCommunityExists      = newError(ErrAlreadyExists, "community name already taken")

	ErrUserExists         = newError(ErrAlreadyExists, "username or email already registered")
	ErrWeakPassword       = newError(ErrValidation, "password does not meet the strength policy")
	ErrInvalidCredentials = newError(ErrUnauthenticated, "invalid credentials")

	ErrSuspiciousLogin         = newError(ErrUnauthenticated, "login from an unrecognised context requires verification")
	ErrContextBlocked          = newError(ErrUnauthenticated, "login from this context is blocked")
	ErrSuspiciousLoginNotFound = newError(ErrNotFound, "suspicious login not found")
	ErrSuspiciousLoginExists   = newError(ErrAlreadyExists, "suspicious login already recorded for this context")
	ErrTrustedContextNotFound  = newError(ErrNotFound, "trusted context not found")
	ErrPreferenceNotFound      = newError(ErrNotFound, "preference not found")
	ErrLoginBlocked            = newError(ErrConflict, "suspicious login is blocked")
	ErrLoginAlreadyTrusted     = newError(ErrConflict, "suspicious login is already trusted")
	ErrLoginNotBlocked         = newError(ErrConflict, "suspicious login is not blocked")
)

// ContextVerificationError is returned when a login is held back by the trust engine.
// Decision carries the suspicious login record the caller has to verify.
type ContextVerificationError struct {
	Err      error
	Decision domain.TrustDecision
}

func (e *ContextVerificationError) Error() string { return e.Err.Error() }

func (e *ContextVerificationError) Unwrap() error { return e.Err }
