package auth

import (
	"errors"
	"fmt"
	"time"
)

// Role represents a user's role inside one organization
type Role string

const (
	RoleMember Role = "member" // Athlete-level access
	RoleAdmin  Role = "admin"  // Coach
	RoleOwner  Role = "owner"  // Coach, owns the organization
)

// ErrInvalidRole is returned when a role string is not one of the known roles
var ErrInvalidRole = errors.New("invalid role")

// Roles returns every known role in a stable order
func Roles() []Role {
	return []Role{RoleMember, RoleAdmin, RoleOwner}
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// IsCoach reports whether the role counts as a coach of the organization
func (r Role) IsCoach() bool {
	return r == RoleAdmin || r == RoleOwner
}

// ParseRole converts a stored role string into a Role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Session is an authenticated browser or API session
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// AuthContext holds the identity of the caller for one request.
// OrganizationID is empty when the request carries no organization.
type AuthContext struct {
	UserID         string
	OrganizationID string
	Session        *Session
}

// HasUser reports whether a current user is known
func (ac *AuthContext) HasUser() bool {
	return ac != nil && ac.UserID != ""
}

// HasOrganization reports whether a current organization is known
func (ac *AuthContext) HasOrganization() bool {
	return ac != nil && ac.OrganizationID != ""
}
