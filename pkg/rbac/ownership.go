package rbac

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// AccessMode selects how AuthorizeOwned combines the role check with
// ownership of the target resource
type AccessMode string

const (
	// ModeCoachOnly requires the matrix to grant the action
	ModeCoachOnly AccessMode = "coach-only"
	// ModeCoachOrSelf accepts either a matrix grant or ownership
	ModeCoachOrSelf AccessMode = "coach-or-self"
	// ModeSelfOnly requires ownership regardless of role
	ModeSelfOnly AccessMode = "self-only"
)

// Valid reports whether m is a known mode
func (m AccessMode) Valid() bool {
	switch m {
	case ModeCoachOnly, ModeCoachOrSelf, ModeSelfOnly:
		return true
	}
	return false
}

// OwnedResource identifies who a record belongs to
type OwnedResource struct {
	OwnerUserID    string `json:"owner_user_id"`
	OrganizationID string `json:"organization_id"`
}

// IsOwner reports whether the requesting user owns the resource.
// Empty ids never match.
func IsOwner(requestingUserID, resourceOwnerUserID string) bool {
	return requestingUserID != "" && requestingUserID == resourceOwnerUserID
}

// AuthorizeOwned decides access to a record owned by a single user.
// Ownership only counts when the record belongs to the organization the
// request was made in.
func (e *Engine) AuthorizeOwned(ctx context.Context, mode AccessMode, req AccessRequest, target OwnedResource) Decision {
	ctx, span := e.startSpan(ctx, "rbac.AuthorizeOwned", req)
	span.SetAttributes(attribute.String("rbac.mode", string(mode)))
	start := time.Now()

	var d Decision
	switch mode {
	case ModeCoachOnly:
		d = e.decide(ctx, req)
	case ModeSelfOnly:
		d = e.ownership(req, target)
	case ModeCoachOrSelf:
		d = e.decide(ctx, req)
		if !d.Allowed {
			if self := e.ownership(req, target); self.Allowed {
				d = self
			}
		}
	default:
		d = e.deny(ReasonCheckFailed, CauseUnknownMode, "")
	}

	e.observe(span, req, d, time.Since(start))
	return d
}

func (e *Engine) ownership(req AccessRequest, target OwnedResource) Decision {
	if req.UserID == "" {
		return e.deny(ReasonCheckFailed, CauseMissingUser, "")
	}
	if !IsOwner(req.UserID, target.OwnerUserID) {
		return e.deny(ReasonForbidden, CauseNotOwner, "")
	}
	if target.OrganizationID != req.OrganizationID {
		return e.deny(ReasonForbidden, CauseForeignOrganization, "")
	}
	return e.allow(CauseOwner, "", 0)
}
