package domain

import (
	"strings"
	"time"
)

// UnknownContextValue is what the fingerprinting layer reports for attributes it could not resolve.
// It is a regular value: two contexts that both carry it in the same field match on that field.
const UnknownContextValue = "unknown"

// LoginContext is the fingerprint of where a login attempt came from.
type LoginContext struct {
	IP         string
	Country    string
	City       string
	Browser    string
	Platform   string
	OS         string
	Device     string
	DeviceType string
}

type contextField struct {
	name  string
	value string
}

func (c LoginContext) fields() []contextField {
	return []contextField{
		{"ip", c.IP},
		{"country", c.Country},
		{"city", c.City},
		{"browser", c.Browser},
		{"platform", c.Platform},
		{"os", c.OS},
		{"device", c.Device},
		{"deviceType", c.DeviceType},
	}
}

// MissingFields lists fields that are empty or whitespace only, in declaration order.
func (c LoginContext) MissingFields() []string {
	var missing []string
	for _, f := range c.fields() {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Complete reports whether every field carries a value.
func (c LoginContext) Complete() bool {
	return len(c.MissingFields()) == 0
}

// ContextMatches reports whether two contexts are equal on all eight fields.
// Comparison is exact and case-sensitive.
func ContextMatches(stored, current LoginContext) bool {
	return stored == current
}

// ChangedFields lists the names of fields whose values differ.
func ChangedFields(stored, current LoginContext) []string {
	a, b := stored.fields(), current.fields()
	var changed []string
	for i := range a {
		if a[i].value != b[i].value {
			changed = append(changed, a[i].name)
		}
	}
	return changed
}

// ContextChanged reports whether any field differs. It is always the negation of ContextMatches.
func ContextChanged(stored, current LoginContext) bool {
	return len(ChangedFields(stored, current)) > 0
}

// IsTrustedDevice compares device and network attributes of a single trusted context.
func IsTrustedDevice(trusted TrustedContext, current LoginContext) bool {
	return ContextMatches(trusted.Context, current)
}

// MatchesAnyTrusted reports whether current matches at least one trusted context.
func MatchesAnyTrusted(trusted []TrustedContext, current LoginContext) bool {
	for _, tc := range trusted {
		if IsTrustedDevice(tc, current) {
			return true
		}
	}
	return false
}

// TrustedContext is a login context the user has approved.
type TrustedContext struct {
	ID        string
	UserID    string
	Email     string
	Context   LoginContext
	CreatedAt time.Time
}

// SuspiciousLogin tracks repeated logins from an unrecognised context.
type SuspiciousLogin struct {
	ID                 string
	UserID             string
	Email              string
	Context            LoginContext
	UnverifiedAttempts int
	IsTrusted          bool
	IsBlocked          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SuspiciousLoginState is the lifecycle position of a suspicious login record.
type SuspiciousLoginState string

const (
	SuspiciousLoginStateNew     SuspiciousLoginState = "new"
	SuspiciousLoginStateTracked SuspiciousLoginState = "tracked"
	SuspiciousLoginStateBlocked SuspiciousLoginState = "blocked"
	SuspiciousLoginStateTrusted SuspiciousLoginState = "trusted"
)

// State derives the lifecycle position from the record flags.
func (s SuspiciousLogin) State() SuspiciousLoginState {
	switch {
	case s.IsTrusted:
		return SuspiciousLoginStateTrusted
	case s.IsBlocked:
		return SuspiciousLoginStateBlocked
	case s.UnverifiedAttempts == 0:
		return SuspiciousLoginStateNew
	default:
		return SuspiciousLoginStateTracked
	}
}

// AttemptsExceeded reports whether a count of unverified attempts is over the threshold.
func AttemptsExceeded(attempts, threshold int) bool {
	return attempts > threshold
}

// UserPreference holds per-user security settings.
type UserPreference struct {
	UserID                 string
	EnableContextBasedAuth bool
	UpdatedAt              time.Time
}

// TrustDecisionKind is the outcome of evaluating a login context.
type TrustDecisionKind string

const (
	TrustDecisionTrusted    TrustDecisionKind = "trusted"
	TrustDecisionSuspicious TrustDecisionKind = "suspicious"
	TrustDecisionBlocked    TrustDecisionKind = "blocked"
)

// Reasons attached to trust decisions.
const (
	TrustReasonContextAuthDisabled = "context_auth_disabled"
	TrustReasonTrustedContext      = "trusted_context"
	TrustReasonNewContext          = "new_context"
	TrustReasonRepeatedContext     = "repeated_context"
	TrustReasonAttemptsExceeded    = "attempts_exceeded"
	TrustReasonContextBlocked      = "context_blocked"
)

// TrustDecision is produced for every evaluated login.
type TrustDecision struct {
	Kind   TrustDecisionKind
	Reason string
	// Record is the suspicious login backing a suspicious or blocked decision.
	Record *SuspiciousLogin
}

// Allowed reports whether the login may proceed.
func (d TrustDecision) Allowed() bool {
	return d.Kind == TrustDecisionTrusted
}
