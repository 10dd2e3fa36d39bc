package visibility

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMissingOrganization is returned when no organization is given
var ErrMissingOrganization = errors.New("organization id is required")

var columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CoachLister lists the coaches of an organization. It must fail, not
// return an empty list, when the organization has none.
type CoachLister interface {
	CoachUserIDs(ctx context.Context, orgID string) ([]string, error)
}

// Builder builds coach-authored content filters
type Builder struct {
	coaches CoachLister
}

// NewBuilder creates a filter builder
func NewBuilder(coaches CoachLister) *Builder {
	return &Builder{coaches: coaches}
}

// CoachFilter matches content that is either global (no author) or
// authored by a coach of the organization
type CoachFilter struct {
	OrganizationID string   `json:"organization_id"`
	CoachUserIDs   []string `json:"coach_user_ids"`

	coaches map[string]struct{}
}

// BuildCoachFilter builds the filter for orgID. Errors from the coach
// lister, including the no-coach error, are returned unchanged.
func (b *Builder) BuildCoachFilter(ctx context.Context, orgID string) (*CoachFilter, error) {
	if orgID == "" {
		return nil, ErrMissingOrganization
	}
	ids, err := b.coaches.CoachUserIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return NewCoachFilter(orgID, ids), nil
}

// NewCoachFilter builds a filter from a known coach list
func NewCoachFilter(orgID string, coachUserIDs []string) *CoachFilter {
	f := &CoachFilter{
		OrganizationID: orgID,
		CoachUserIDs:   append([]string(nil), coachUserIDs...),
		coaches:        make(map[string]struct{}, len(coachUserIDs)),
	}
	for _, id := range coachUserIDs {
		f.coaches[id] = struct{}{}
	}
	return f
}

// Matches reports whether content authored by createdBy is visible.
// A nil author means global content.
func (f *CoachFilter) Matches(createdBy *string) bool {
	if createdBy == nil {
		return true
	}
	_, ok := f.coaches[*createdBy]
	return ok
}

// SQL renders the filter as a WHERE fragment over column using numbered
// placeholders starting at firstArg:
//
//	(created_by IS NULL OR created_by IN ($2, $3))
func (f *CoachFilter) SQL(column string, firstArg int) (string, []interface{}, error) {
	if !columnPattern.MatchString(column) {
		return "", nil, fmt.Errorf("invalid column name %q", column)
	}
	if firstArg < 1 {
		return "", nil, fmt.Errorf("placeholder index must be positive, got %d", firstArg)
	}
	if len(f.CoachUserIDs) == 0 {
		return fmt.Sprintf("(%s IS NULL)", column), nil, nil
	}

	placeholders := make([]string, len(f.CoachUserIDs))
	args := make([]interface{}, len(f.CoachUserIDs))
	for i, id := range f.CoachUserIDs {
		placeholders[i] = fmt.Sprintf("$%d", firstArg+i)
		args[i] = id
	}
	return fmt.Sprintf("(%s IS NULL OR %s IN (%s))", column, column, strings.Join(placeholders, ", ")), args, nil
}
