package auth

// Package auth contains domain-level types for users, roles, and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents an authorization level. The string form is what is
// persisted in the users table and in session snapshots.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// ParseRole converts s into a Role, rejecting unknown values.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// LandingPath returns the page a session with this role is sent to after
// authenticating.
func (r Role) LandingPath() string {
	if r == RoleAdmin {
		return "/admin"
	}
	return "/members"
}

// User is the stored identity record.
// PasswordHash is never rendered or logged.
type User struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         Role      `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// IsAdmin reports whether the stored role is admin.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// NewUser carries the fields required to insert a user.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}

// Identity represents the authenticated principal returned by an external IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	Subject   string // stable identifier at the IdP (sub)
	FirstName string
	LastName  string
	Email     string
}

// DisplayName joins the given and family names, falling back to the email.
func (i Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Email
	}
	return name
}

// Session is the server-side record we persist for an authenticated browser.
// Name, Email and Role are a snapshot taken when the session was established
// and are not refreshed when the stored user changes.
type Session struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          Role      `json:"role"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// IsAnonymous reports whether the session grants no identity: unauthenticated
// or already past its expiry.
func (s Session) IsAnonymous(now time.Time) bool {
	return !s.Authenticated || s.Expired(now)
}

// Expired reports whether ExpiresAt is at or before now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// HasRole reports whether the snapshot role equals want exactly.
// There is no hierarchy: admin does not imply user for role-gated routes.
func (s Session) HasRole(want Role) bool { return s.Role == want }
