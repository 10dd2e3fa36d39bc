package orgs

import (
	"context"

	"github.com/platinummonkey/coachgate/pkg/auth"
)

// CachedService is a Service whose membership reads go through a
// CachedResolver. Writes go to the store first and then invalidate the
// cached pair, so the writing replica never serves its own stale answer.
type CachedService struct {
	Service
	cache *CachedResolver
}

// NewCachedService wraps store with cache
func NewCachedService(store Service, cache *CachedResolver) *CachedService {
	return &CachedService{Service: store, cache: cache}
}

// FindMembership implements Resolver
func (s *CachedService) FindMembership(ctx context.Context, userID, orgID string) (*Membership, error) {
	return s.cache.FindMembership(ctx, userID, orgID)
}

// AddMember adds a user and drops any cached "not a member" answer
func (s *CachedService) AddMember(ctx context.Context, orgID, userID string, role auth.Role, invitedBy *string) (*Membership, error) {
	member, err := s.Service.AddMember(ctx, orgID, userID, role, invitedBy)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID, orgID)
	return member, nil
}

// UpdateMemberRole changes a role and drops the cached membership
func (s *CachedService) UpdateMemberRole(ctx context.Context, orgID, userID string, role auth.Role) error {
	if err := s.Service.UpdateMemberRole(ctx, orgID, userID, role); err != nil {
		return err
	}
	s.invalidate(ctx, userID, orgID)
	return nil
}

// RemoveMember removes a user and drops the cached membership
func (s *CachedService) RemoveMember(ctx context.Context, orgID, userID string) error {
	if err := s.Service.RemoveMember(ctx, orgID, userID); err != nil {
		return err
	}
	s.invalidate(ctx, userID, orgID)
	return nil
}

func (s *CachedService) invalidate(ctx context.Context, userID, orgID string) {
	if err := s.cache.Invalidate(ctx, userID, orgID); err != nil {
		// Other replicas may serve the old answer until the TTL runs out.
		s.cache.logger.WithError(err).WithFields(map[string]interface{}{
			"user_id":         userID,
			"organization_id": orgID,
		}).Warn("membership cache invalidation failed")
	}
}
