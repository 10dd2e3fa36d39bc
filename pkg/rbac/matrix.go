package rbac

import (
	"github.com/platinummonkey/coachgate/pkg/auth"
)

// Matrix is the static role -> resource -> allowed actions table.
// It is a plain value with no setters: build it once with NewMatrix and
// pass it to whoever needs it.
type Matrix struct {
	table [3][7]ActionSet
}

// MatrixEntry is one (role, resource) row of the matrix
type MatrixEntry struct {
	Role     auth.Role `json:"role"`
	Resource Resource  `json:"resource"`
	Actions  ActionSet `json:"actions"`
}

// NewMatrix builds the permission matrix
func NewMatrix() Matrix {
	var m Matrix
	for ri, role := range auth.Roles() {
		for si, resource := range Resources() {
			m.table[ri][si], _ = statement(role, resource)
		}
	}
	return m
}

// AllowedActions returns the actions role may perform on resource.
// Unknown roles and resources get the empty set.
func (m Matrix) AllowedActions(role auth.Role, resource Resource) ActionSet {
	ri, ok := roleIndex(role)
	if !ok {
		return 0
	}
	si, ok := resourceIndex(resource)
	if !ok {
		return 0
	}
	return m.table[ri][si]
}

// Entries lists every (role, resource) pair, including empty ones
func (m Matrix) Entries() []MatrixEntry {
	entries := make([]MatrixEntry, 0, len(auth.Roles())*len(Resources()))
	for _, role := range auth.Roles() {
		for _, resource := range Resources() {
			entries = append(entries, MatrixEntry{
				Role:     role,
				Resource: resource,
				Actions:  m.AllowedActions(role, resource),
			})
		}
	}
	return entries
}

// statement is the source of truth for the matrix. The second result is
// false when the pair fell through to the deny-by-default branch, which
// the tests forbid for every known role and resource.
func statement(role auth.Role, resource Resource) (ActionSet, bool) {
	switch role {
	case auth.RoleAdmin, auth.RoleOwner:
		switch resource {
		case ResourceWorkout, ResourceExercise, ResourceComplex,
			ResourceAthlete, ResourceSession, ResourcePersonalRecord, ResourceCompetitorStatus:
			return AllActions, true
		}
	case auth.RoleMember:
		switch resource {
		case ResourceWorkout, ResourceExercise, ResourceComplex:
			// coach-only resources
			return 0, true
		case ResourceAthlete, ResourceSession, ResourcePersonalRecord, ResourceCompetitorStatus:
			return AllActions, true
		}
	}
	return 0, false
}

func roleIndex(role auth.Role) (int, bool) {
	switch role {
	case auth.RoleMember:
		return 0, true
	case auth.RoleAdmin:
		return 1, true
	case auth.RoleOwner:
		return 2, true
	}
	return 0, false
}

func resourceIndex(resource Resource) (int, bool) {
	switch resource {
	case ResourceWorkout:
		return 0, true
	case ResourceExercise:
		return 1, true
	case ResourceComplex:
		return 2, true
	case ResourceAthlete:
		return 3, true
	case ResourceSession:
		return 4, true
	case ResourcePersonalRecord:
		return 5, true
	case ResourceCompetitorStatus:
		return 6, true
	}
	return 0, false
}
