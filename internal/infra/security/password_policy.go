package security

import (
	"fmt"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/arklim/social-platform-trust/internal/core/port"
)

const (
	defaultMinPasswordLength   = 8
	defaultMinCharacterClasses = 2
	defaultMinZxcvbnScore      = 2
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password. userInputs are strings the password must not resemble.
type PasswordRule func(password string, userInputs []string) error

// PasswordPolicy applies its rules in order and reports the first violation.
type PasswordPolicy struct {
	rules []PasswordRule
}

// NewPasswordPolicy builds a policy from explicit rules.
func NewPasswordPolicy(rules ...PasswordRule) *PasswordPolicy {
	return &PasswordPolicy{rules: append([]PasswordRule(nil), rules...)}
}

// DefaultPasswordPolicy enforces length, character variety and zxcvbn strength.
func DefaultPasswordPolicy() *PasswordPolicy {
	return NewPasswordPolicy(
		MinLengthRule(defaultMinPasswordLength),
		RequireCharacterClassesRule(defaultMinCharacterClasses),
		RequirePasswordStrengthRule(defaultMinZxcvbnScore),
	)
}

// Validate implements port.PasswordPolicyValidator.
func (p *PasswordPolicy) Validate(password string, userInputs ...string) error {
	if p == nil {
		return fmt.Errorf("password policy not configured")
	}

	inputs := make([]string, 0, len(userInputs))
	for _, in := range userInputs {
		if trimmed := strings.TrimSpace(in); trimmed != "" {
			inputs = append(inputs, trimmed)
		}
	}

	for _, rule := range p.rules {
		if err := rule(password, inputs); err != nil {
			return err
		}
	}
	return nil
}

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return func(password string, _ []string) error {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	}
}

// RequireCharacterClassesRule ensures characters from at least min of: upper, lower, digit, symbol.
func RequireCharacterClassesRule(min int) PasswordRule {
	return func(password string, _ []string) error {
		var upper, lower, digit, symbol bool
		for _, r := range password {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			case unicode.IsSymbol(r) || unicode.IsPunct(r):
				symbol = true
			}
		}

		classes := 0
		for _, present := range []bool{upper, lower, digit, symbol} {
			if present {
				classes++
			}
		}
		if classes >= min {
			return nil
		}
		return &PasswordValidationError{
			Code:    "character_classes",
			Message: fmt.Sprintf("password must include at least %d character types", min),
		}
	}
}

// RequirePasswordStrengthRule enforces a minimum zxcvbn score, penalising passwords built from user inputs.
func RequirePasswordStrengthRule(minScore int) PasswordRule {
	if minScore > 4 {
		minScore = 4
	}
	return func(password string, userInputs []string) error {
		if minScore <= 0 {
			return nil
		}
		if result := zxcvbn.PasswordStrength(password, userInputs); result.Score >= minScore {
			return nil
		}
		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too easy to guess",
		}
	}
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)
