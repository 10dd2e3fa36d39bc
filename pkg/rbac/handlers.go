package rbac

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/platinummonkey/coachgate/pkg/httputil"
	"github.com/platinummonkey/coachgate/pkg/middleware"
	"github.com/platinummonkey/coachgate/pkg/observability"
	"github.com/platinummonkey/coachgate/pkg/orgs"
	"github.com/platinummonkey/coachgate/pkg/visibility"
)

// Route requirements of the organization scoped endpoints
var (
	membershipRoute        = Route(ResourceAthlete, ActionRead)
	coachesRoute           = Route(ResourceWorkout, ActionRead)
	athletesRoute          = Route(ResourceAthlete, ActionRead)
	workoutVisibilityRoute = Route(ResourceWorkout, ActionRead)
	athleteProfileRoute    = PersonalRoute(ResourceAthlete, ActionCreate)
)

// Handlers provides HTTP handlers for access decisions and the
// organization lookups built on them
type Handlers struct {
	engine     *Engine
	gate       *PermissionMiddleware
	members    orgs.Service
	classifier *orgs.Classifier
	filters    *visibility.Builder
}

// NewHandlers creates new RBAC handlers. members should read through the
// same resolver as engine so a roster change is seen by the gate.
func NewHandlers(engine *Engine, members orgs.Service, classifier *orgs.Classifier) *Handlers {
	return &Handlers{
		engine:     engine,
		gate:       NewPermissionMiddleware(engine),
		members:    members,
		classifier: classifier,
		filters:    visibility.NewBuilder(classifier),
	}
}

// RegisterRoutes registers all RBAC routes. The router must already run
// the auth and organization middleware.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	// Introspection
	router.HandleFunc("/v1/permissions", h.ListPermissions).Methods(http.MethodGet)
	router.HandleFunc("/v1/access/evaluate", h.Evaluate).Methods(http.MethodPost)
	router.HandleFunc("/v1/orgs/{org_id}/access/owned", h.EvaluateOwned).Methods(http.MethodPost)

	// Gated organization lookups
	router.Handle("/v1/orgs/{org_id}/membership", h.protect(membershipRoute, h.GetMembership)).Methods(http.MethodGet)
	router.Handle("/v1/orgs/{org_id}/coaches", h.protect(coachesRoute, h.ListCoaches)).Methods(http.MethodGet)
	router.Handle("/v1/orgs/{org_id}/athletes", h.protect(athletesRoute, h.ListAthletes)).Methods(http.MethodGet)
	router.Handle("/v1/orgs/{org_id}/workouts/visibility", h.protect(workoutVisibilityRoute, h.WorkoutVisibility)).Methods(http.MethodGet)
	h.registerMemberRoutes(router)

	// Personal, not organization scoped
	router.Handle("/v1/me/athlete-profile/check", h.protect(athleteProfileRoute, h.AthleteProfileCheck)).Methods(http.MethodPost)
}

func (h *Handlers) protect(meta RouteMeta, fn http.HandlerFunc) http.Handler {
	return httputil.Chain(AttachRoute(meta), h.gate.Enforce)(fn)
}

// ListPermissions returns every (role, resource) pair of the matrix
func (h *Handlers) ListPermissions(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteSuccess(w, map[string]interface{}{
		"statements": h.engine.Matrix().Entries(),
	})
}

// EvaluateRequest is the body of POST /v1/access/evaluate
type EvaluateRequest struct {
	Resource             string   `json:"resource"`
	RequiredActions      []string `json:"required_actions"`
	OrganizationID       string   `json:"organization_id,omitempty"`
	NoOrganizationBypass bool     `json:"no_organization_bypass,omitempty"`
}

// Evaluate decides an arbitrary request for the calling user without
// gating anything. The decision is always returned with 200.
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	var body EvaluateRequest
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	req, ok := h.accessRequest(w, r, body.Resource, body.RequiredActions)
	if !ok {
		return
	}
	req.NoOrganizationBypass = body.NoOrganizationBypass
	if body.OrganizationID != "" {
		if _, err := uuid.Parse(body.OrganizationID); err != nil {
			httputil.WriteBadRequest(w, "invalid organization id")
			return
		}
		req.OrganizationID = body.OrganizationID
	}

	_ = httputil.WriteSuccess(w, h.engine.Decide(r.Context(), req))
}

// OwnedEvaluateRequest is the body of POST /v1/orgs/{org_id}/access/owned
type OwnedEvaluateRequest struct {
	Mode                string   `json:"mode"`
	Resource            string   `json:"resource"`
	RequiredActions     []string `json:"required_actions"`
	OwnerUserID         string   `json:"owner_user_id"`
	OwnerOrganizationID string   `json:"owner_organization_id"`
}

// EvaluateOwned decides access to a record owned by a single user in the
// organization of the path
func (h *Handlers) EvaluateOwned(w http.ResponseWriter, r *http.Request) {
	var body OwnedEvaluateRequest
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	mode := AccessMode(body.Mode)
	if !mode.Valid() {
		httputil.WriteBadRequest(w, "mode must be one of coach-only, coach-or-self, self-only")
		return
	}
	if !httputil.RequireNonEmpty(w, body.OwnerUserID, "owner_user_id") {
		return
	}

	req, ok := h.accessRequest(w, r, body.Resource, body.RequiredActions)
	if !ok {
		return
	}

	target := OwnedResource{OwnerUserID: body.OwnerUserID, OrganizationID: body.OwnerOrganizationID}
	_ = httputil.WriteSuccess(w, h.engine.AuthorizeOwned(r.Context(), mode, req, target))
}

func (h *Handlers) accessRequest(w http.ResponseWriter, r *http.Request, resource string, actions []string) (AccessRequest, bool) {
	res, err := ParseResource(resource)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return AccessRequest{}, false
	}

	required := make([]Action, 0, len(actions))
	for _, s := range actions {
		a, err := ParseAction(s)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return AccessRequest{}, false
		}
		required = append(required, a)
	}

	return Route(res, required...).Request(middleware.GetAuthContext(r)), true
}

// GetMembership returns the caller's membership in the organization
func (h *Handlers) GetMembership(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	member, err := h.members.FindMembership(r.Context(), authCtx.UserID, authCtx.OrganizationID)
	if err != nil {
		if errors.Is(err, orgs.ErrMembershipNotFound) {
			// removed between the gate and this lookup
			httputil.WriteForbidden(w, ReasonCheckFailed)
			return
		}
		h.internalError(w, r, err, "failed to load membership")
		return
	}
	_ = httputil.WriteSuccess(w, member)
}

// ListCoaches returns the coach user ids of the organization
func (h *Handlers) ListCoaches(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetAuthContext(r).OrganizationID
	ids, err := h.classifier.CoachUserIDs(r.Context(), orgID)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, map[string]interface{}{
		"organization_id": orgID,
		"coach_user_ids":  ids,
	})
}

// ListAthletes returns the athlete user ids of the organization
func (h *Handlers) ListAthletes(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetAuthContext(r).OrganizationID
	ids, err := h.classifier.AthleteUserIDs(r.Context(), orgID)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, map[string]interface{}{
		"organization_id":  orgID,
		"athlete_user_ids": ids,
	})
}

// WorkoutVisibility returns the predicate that scopes workout reads
func (h *Handlers) WorkoutVisibility(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetAuthContext(r).OrganizationID
	filter, err := h.filters.BuildCoachFilter(r.Context(), orgID)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}

	where, args, err := filter.SQL("created_by", 1)
	if err != nil {
		h.internalError(w, r, err, "failed to render visibility filter")
		return
	}

	_ = httputil.WriteSuccess(w, map[string]interface{}{
		"organization_id": filter.OrganizationID,
		"coach_user_ids":  filter.CoachUserIDs,
		"where":           where,
		"args":            args,
	})
}

// AthleteProfileCheck tells a user whether they may create their own
// athlete profile. It is reachable without any organization.
func (h *Handlers) AthleteProfileCheck(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteSuccess(w, map[string]interface{}{
		"allowed": true,
	})
}

func (h *Handlers) lookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orgs.ErrNoCoachFound):
		httputil.WriteNotFoundError(w, orgs.ErrNoCoachFound.Error())
	case errors.Is(err, orgs.ErrNoAthleteFound):
		httputil.WriteNotFoundError(w, orgs.ErrNoAthleteFound.Error())
	default:
		h.internalError(w, r, err, "organization lookup failed")
	}
}

func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	observability.FromContext(r.Context()).WithError(err).Error(msg)
	httputil.WriteInternalError(w)
}
