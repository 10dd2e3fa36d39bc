package rbac

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Resource represents a protected entity family
type Resource string

const (
	ResourceWorkout          Resource = "workout"
	ResourceExercise         Resource = "exercise"
	ResourceComplex          Resource = "complex"
	ResourceAthlete          Resource = "athlete"
	ResourceSession          Resource = "session"
	ResourcePersonalRecord   Resource = "personalRecord"
	ResourceCompetitorStatus Resource = "competitorStatus"
)

// Action represents an operation on a resource
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrUnknownAction   = errors.New("unknown action")
)

// Resources returns every known resource in a stable order
func Resources() []Resource {
	return []Resource{
		ResourceWorkout,
		ResourceExercise,
		ResourceComplex,
		ResourceAthlete,
		ResourceSession,
		ResourcePersonalRecord,
		ResourceCompetitorStatus,
	}
}

// Valid reports whether r is a known resource
func (r Resource) Valid() bool {
	_, ok := resourceIndex(r)
	return ok
}

// ParseResource converts a string to a Resource
func ParseResource(s string) (Resource, error) {
	r := Resource(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownResource, s)
	}
	return r, nil
}

// Actions returns every known action in a stable order
func Actions() []Action {
	return []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}
}

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	return a.bit() != 0
}

// ParseAction converts a string to an Action
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

func (a Action) bit() ActionSet {
	switch a {
	case ActionRead:
		return 1 << 0
	case ActionCreate:
		return 1 << 1
	case ActionUpdate:
		return 1 << 2
	case ActionDelete:
		return 1 << 3
	}
	return 0
}

// Permission represents a specific permission (resource + action)
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

// String returns a string representation of the permission
func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// ActionSet is an immutable set of actions. The zero value is the empty set.
type ActionSet uint8

// AllActions holds read, create, update and delete
const AllActions = ActionSet(1<<0 | 1<<1 | 1<<2 | 1<<3)

// NewActionSet builds a set from actions; unknown actions are ignored
func NewActionSet(actions ...Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s |= a.bit()
	}
	return s
}

// Has reports whether a is in the set
func (s ActionSet) Has(a Action) bool {
	b := a.bit()
	return b != 0 && s&b == b
}

// Intersect returns the actions present in both sets
func (s ActionSet) Intersect(o ActionSet) ActionSet {
	return s & o
}

// Empty reports whether the set has no actions
func (s ActionSet) Empty() bool {
	return s&AllActions == 0
}

// Actions lists the members of the set in read, create, update, delete order
func (s ActionSet) Actions() []Action {
	out := make([]Action, 0, 4)
	for _, a := range Actions() {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s ActionSet) String() string {
	actions := s.Actions()
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}

// MarshalJSON encodes the set as a list of action names
func (s ActionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Actions())
}
