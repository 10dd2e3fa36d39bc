package rbac

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/platinummonkey/coachgate/pkg/auth"
	"github.com/platinummonkey/coachgate/pkg/httputil"
	"github.com/platinummonkey/coachgate/pkg/middleware"
	"github.com/platinummonkey/coachgate/pkg/observability"
	"github.com/platinummonkey/coachgate/pkg/orgs"
)

// Roster routes. Reading the roster is open to every member; changing it
// additionally requires the caller to coach the organization.
var (
	listMembersRoute  = Route(ResourceAthlete, ActionRead)
	addMemberRoute    = Route(ResourceAthlete, ActionCreate)
	updateMemberRoute = Route(ResourceAthlete, ActionUpdate)
	removeMemberRoute = Route(ResourceAthlete, ActionDelete)
)

// AddMemberRequest is the body of POST /v1/orgs/{org_id}/members
type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateMemberRequest is the body of PUT /v1/orgs/{org_id}/members/{user_id}
type UpdateMemberRequest struct {
	Role string `json:"role"`
}

func (h *Handlers) registerMemberRoutes(router *mux.Router) {
	router.Handle("/v1/orgs/{org_id}/members", h.protect(listMembersRoute, h.ListMembers)).Methods(http.MethodGet)
	router.Handle("/v1/orgs/{org_id}/members", h.protect(addMemberRoute, h.coachOnly(h.AddMember))).Methods(http.MethodPost)
	router.Handle("/v1/orgs/{org_id}/members/{user_id}", h.protect(updateMemberRoute, h.coachOnly(h.UpdateMember))).Methods(http.MethodPut)
	router.Handle("/v1/orgs/{org_id}/members/{user_id}", h.protect(removeMemberRoute, h.coachOnly(h.RemoveMember))).Methods(http.MethodDelete)
}

// coachOnly lets next run only for admins and owners of the organization.
// A failing lookup denies like the gate does.
func (h *Handlers) coachOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authCtx := middleware.GetAuthContext(r)
		isCoach, err := h.classifier.IsCoach(r.Context(), authCtx.UserID, authCtx.OrganizationID)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("coach lookup failed, denying")
			httputil.WriteForbidden(w, ReasonCheckFailed)
			return
		}
		if !isCoach {
			httputil.WriteForbidden(w, ReasonForbidden)
			return
		}
		next(w, r)
	}
}

// ListMembers returns the memberships of the organization, optionally
// only those holding ?role=
func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	var role auth.Role
	if raw := httputil.ParseQueryString(r, "role", ""); raw != "" {
		parsed, err := auth.ParseRole(raw)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		role = parsed
	}

	orgID := middleware.GetAuthContext(r).OrganizationID
	members, err := h.members.ListMembers(r.Context(), orgID)
	if err != nil {
		h.internalError(w, r, err, "failed to list members")
		return
	}
	if role != "" {
		filtered := make([]*orgs.Membership, 0, len(members))
		for _, m := range members {
			if m.Role == role {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}
	_ = httputil.WriteSuccess(w, map[string]interface{}{
		"organization_id": orgID,
		"members":         members,
	})
}

// AddMember adds a user to the organization, invited by the caller
func (h *Handlers) AddMember(w http.ResponseWriter, r *http.Request) {
	var body AddMemberRequest
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}
	if _, err := uuid.Parse(body.UserID); err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}
	role, err := auth.ParseRole(body.Role)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	authCtx := middleware.GetAuthContext(r)
	invitedBy := authCtx.UserID
	member, err := h.members.AddMember(r.Context(), authCtx.OrganizationID, body.UserID, role, &invitedBy)
	if err != nil {
		h.memberError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, member)
}

// UpdateMember changes the role of a member
func (h *Handlers) UpdateMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	var body UpdateMemberRequest
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}
	role, err := auth.ParseRole(body.Role)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	orgID := middleware.GetAuthContext(r).OrganizationID
	if err := h.members.UpdateMemberRole(r.Context(), orgID, userID, role); err != nil {
		h.memberError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, map[string]interface{}{
		"organization_id": orgID,
		"user_id":         userID,
		"role":            role,
	})
}

// RemoveMember removes a user from the organization
func (h *Handlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	orgID := middleware.GetAuthContext(r).OrganizationID
	if err := h.members.RemoveMember(r.Context(), orgID, userID); err != nil {
		h.memberError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) pathUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(userID); err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return "", false
	}
	return userID, true
}

func (h *Handlers) memberError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orgs.ErrMemberExists):
		httputil.WriteError(w, http.StatusConflict, err)
	case errors.Is(err, orgs.ErrMembershipNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, auth.ErrInvalidRole):
		httputil.WriteBadRequest(w, err.Error())
	default:
		h.internalError(w, r, err, "membership update failed")
	}
}
