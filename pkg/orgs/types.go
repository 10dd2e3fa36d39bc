package orgs

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/coachgate/pkg/auth"
)

var (
	// ErrMembershipNotFound means the user holds no role in the organization.
	// It is an expected outcome, not a fault.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrMemberExists is returned when adding a user that already belongs to the organization
	ErrMemberExists = errors.New("member already exists")
	// ErrNoCoachFound is returned when an organization has no admin or owner
	ErrNoCoachFound = errors.New("no coach found")
	// ErrNoAthleteFound is returned when an organization has no member-role users
	ErrNoAthleteFound = errors.New("no athlete found")
)

// Membership binds a user to an organization with a role.
// At most one membership exists per (user, organization).
type Membership struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Role           auth.Role `json:"role"`
	InvitedBy      *string   `json:"invited_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Resolver finds the membership of a user in an organization.
// Implementations return ErrMembershipNotFound when none exists.
type Resolver interface {
	FindMembership(ctx context.Context, userID, orgID string) (*Membership, error)
}

// Directory lists users of an organization grouped by role family
type Directory interface {
	ListCoachUserIDs(ctx context.Context, orgID string) ([]string, error)
	ListAthleteUserIDs(ctx context.Context, orgID string) ([]string, error)
}

// Service is the full membership store used by the service binary
type Service interface {
	Resolver
	Directory

	ListMembers(ctx context.Context, orgID string) ([]*Membership, error)
	AddMember(ctx context.Context, orgID, userID string, role auth.Role, invitedBy *string) (*Membership, error)
	UpdateMemberRole(ctx context.Context, orgID, userID string, role auth.Role) error
	RemoveMember(ctx context.Context, orgID, userID string) error
}
