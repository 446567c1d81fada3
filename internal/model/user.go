// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
	"unicode"
)

// ProviderType identifies a supported third-party OAuth identity provider.
//
// The values are stored verbatim in the database and accepted verbatim in the
// POST /login/oauth body, so they are upper-case string constants rather than
// iota-based integers — no translation needed at either boundary.
type ProviderType string

const (
	ProviderGoogle   ProviderType = "GOOGLE"
	ProviderFacebook ProviderType = "FACEBOOK"
)

// Valid reports whether t is one of the supported providers.
func (t ProviderType) Valid() bool {
	return t == ProviderGoogle || t == ProviderFacebook
}

// OAuthProvider links a user record to a third-party identity.
//
// ID is the provider's own identifier for the account (Google's numeric id,
// Facebook's id), not ours. A user accumulates at most one entry per provider
// account — the repository enforces uniqueness on ID.
type OAuthProvider struct {
	ID   string       `json:"id"`
	Type ProviderType `json:"type"`
}

// User represents a registered account.
//
// Password always holds either an argon2id hash or the configured OAuth
// placeholder value — never a user-supplied plaintext after a write. The
// `json:"-"` tag keeps it out of any serialized form, but external responses
// go through Filtered() anyway so the exposed shape is explicit.
//
// Email is lowercased before every write and compared case-insensitively;
// Username and Email are globally unique (enforced by the repository's
// unique indexes and surfaced as Conflict errors).
type User struct {
	ID             string          `json:"id"           db:"id"`
	FirstName      string          `json:"firstName"    db:"first_name"`
	LastName       string          `json:"lastName"     db:"last_name"`
	Username       string          `json:"username"     db:"username"`
	Email          string          `json:"email"        db:"email"`
	Password       string          `json:"-"            db:"password"`
	ProfilePhoto   string          `json:"profilePhoto" db:"profile_photo"`
	OAuthProviders []OAuthProvider `json:"oauthProviders"`
	CreatedAt      time.Time       `json:"createdAt"    db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt"    db:"updated_at"`
}

// FilteredUser is the external representation of a User: every profile field,
// no credential. The handler layer only ever serializes this shape.
type FilteredUser struct {
	ID             string          `json:"id"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	ProfilePhoto   string          `json:"profilePhoto"`
	OAuthProviders []OAuthProvider `json:"oauthProviders"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Filtered returns the user with the credential stripped.
//
// OAuthProviders is copied so callers can't reach back into the source slice.
// A nil slice becomes an empty one — the JSON output is always an array,
// never null.
func (u *User) Filtered() *FilteredUser {
	providers := make([]OAuthProvider, len(u.OAuthProviders))
	copy(providers, u.OAuthProviders)

	return &FilteredUser{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Username:       u.Username,
		Email:          u.Email,
		ProfilePhoto:   u.ProfilePhoto,
		OAuthProviders: providers,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// FilterUsers maps Filtered over a slice. An empty input yields an empty
// (non-nil) slice so list endpoints return [] rather than null.
func FilterUsers(users []User) []FilteredUser {
	filtered := make([]FilteredUser, 0, len(users))
	for i := range users {
		filtered = append(filtered, *users[i].Filtered())
	}
	return filtered
}

// HasProvider reports whether the user already has an OAuth link with the
// given provider ID.
func (u *User) HasProvider(providerID string) bool {
	for _, p := range u.OAuthProviders {
		if p.ID == providerID {
			return true
		}
	}
	return false
}

// NormalizeEmail lowercases and trims an email address. Every path that
// writes or looks up an email goes through this, so "Ann@X.com" and
// "ann@x.com" always refer to the same account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// passwordSpecials are the characters that satisfy the "special character"
// requirement of the password policy.
const passwordSpecials = "#?!@$%^&*-"

// ValidatePassword checks the account password complexity policy:
// 8–15 characters with at least one upper-case letter, one lower-case
// letter, one digit, and one special character.
//
// OAuth-originated accounts carry a placeholder credential that is exempt
// from this policy; that exemption is the caller's decision, not this
// function's.
func ValidatePassword(password string) bool {
	if len(password) < 8 || len(password) > 15 {
		return false
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	return upper && lower && digit && special
}
