package domain

import "time"

// UserRole is the platform-wide role of an account.
type UserRole string

const (
	UserRoleGeneral   UserRole = "general"
	UserRoleModerator UserRole = "moderator"
	UserRoleAdmin     UserRole = "admin"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleGeneral, UserRoleModerator, UserRoleAdmin:
		return true
	}
	return false
}

// User mirrors the persisted representation in the users table.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
}

// Sanitized returns a copy without credential material.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
