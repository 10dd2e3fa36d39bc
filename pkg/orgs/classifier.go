package orgs

import (
	"context"
	"errors"
	"fmt"
)

// Classifier answers coach and athlete questions about organization membership
type Classifier struct {
	resolver  Resolver
	directory Directory
}

// NewClassifier creates a classifier over a membership resolver and directory
func NewClassifier(resolver Resolver, directory Directory) *Classifier {
	return &Classifier{resolver: resolver, directory: directory}
}

// IsCoach reports whether userID is an admin or owner of orgID.
// A missing membership is false, not an error.
func (c *Classifier) IsCoach(ctx context.Context, userID, orgID string) (bool, error) {
	member, err := c.resolver.FindMembership(ctx, userID, orgID)
	if errors.Is(err, ErrMembershipNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if member == nil {
		return false, nil
	}
	return member.Role.IsCoach(), nil
}

// IsAthleteOfOrganization reports whether userID is a member-role user of orgID
func (c *Classifier) IsAthleteOfOrganization(ctx context.Context, userID, orgID string) (bool, error) {
	member, err := c.resolver.FindMembership(ctx, userID, orgID)
	if errors.Is(err, ErrMembershipNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if member == nil {
		return false, nil
	}
	return !member.Role.IsCoach(), nil
}

// CoachUserIDs returns every coach of orgID.
// It fails with ErrNoCoachFound when the organization has none.
func (c *Classifier) CoachUserIDs(ctx context.Context, orgID string) ([]string, error) {
	ids, err := c.directory.ListCoachUserIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("organization %s: %w", orgID, ErrNoCoachFound)
	}
	return ids, nil
}

// AthleteUserIDs returns every athlete of orgID.
// It fails with ErrNoAthleteFound when the organization has none.
func (c *Classifier) AthleteUserIDs(ctx context.Context, orgID string) ([]string, error) {
	ids, err := c.directory.ListAthleteUserIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("organization %s: %w", orgID, ErrNoAthleteFound)
	}
	return ids, nil
}
