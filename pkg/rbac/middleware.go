package rbac

import (
	"context"
	"net/http"

	"github.com/platinummonkey/coachgate/pkg/auth"
	"github.com/platinummonkey/coachgate/pkg/contextkeys"
	"github.com/platinummonkey/coachgate/pkg/httputil"
	"github.com/platinummonkey/coachgate/pkg/middleware"
)

// RouteMeta is the static permission requirement of one route
type RouteMeta struct {
	Resource             Resource `json:"resource"`
	RequiredActions      []Action `json:"required_actions"`
	NoOrganizationBypass bool     `json:"no_organization_bypass,omitempty"`
}

// Route declares a route that needs any one of actions on resource
func Route(resource Resource, actions ...Action) RouteMeta {
	return RouteMeta{Resource: resource, RequiredActions: actions}
}

// PersonalRoute declares a route that is always allowed because it acts on
// the caller's own data rather than an organization's
func PersonalRoute(resource Resource, actions ...Action) RouteMeta {
	return RouteMeta{Resource: resource, RequiredActions: actions, NoOrganizationBypass: true}
}

// Request builds the access request for the given caller. A nil auth
// context yields a request without user or organization.
func (m RouteMeta) Request(authCtx *auth.AuthContext) AccessRequest {
	req := AccessRequest{
		RequiredActions:      m.RequiredActions,
		Resource:             m.Resource,
		NoOrganizationBypass: m.NoOrganizationBypass,
	}
	if authCtx != nil {
		req.UserID = authCtx.UserID
		req.OrganizationID = authCtx.OrganizationID
	}
	return req
}

// WithRouteMeta attaches route metadata to ctx
func WithRouteMeta(ctx context.Context, meta RouteMeta) context.Context {
	return contextkeys.WithRoute(ctx, &meta)
}

// RouteMetaFromContext returns the route metadata attached to ctx
func RouteMetaFromContext(ctx context.Context) (RouteMeta, bool) {
	meta, ok := ctx.Value(contextkeys.RouteKey).(*RouteMeta)
	if !ok || meta == nil {
		return RouteMeta{}, false
	}
	return *meta, true
}

// AttachRoute returns middleware that stores meta on every request
func AttachRoute(meta RouteMeta) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithRouteMeta(r.Context(), meta)))
		})
	}
}

// PermissionMiddleware turns engine decisions into HTTP responses.
// Every denial is a 403 carrying the decision's reason.
type PermissionMiddleware struct {
	engine *Engine
}

// NewPermissionMiddleware creates a new permission middleware
func NewPermissionMiddleware(engine *Engine) *PermissionMiddleware {
	return &PermissionMiddleware{
		engine: engine,
	}
}

// Require gates next behind meta
func (pm *PermissionMiddleware) Require(meta RouteMeta) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pm.serve(w, r, meta, next)
		})
	}
}

// Enforce gates next behind the route metadata found on the request
// context. Requests without metadata are denied.
func (pm *PermissionMiddleware) Enforce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta, ok := RouteMetaFromContext(r.Context())
		if !ok {
			httputil.WriteForbidden(w, ReasonCheckFailed)
			return
		}
		pm.serve(w, r, meta, next)
	})
}

func (pm *PermissionMiddleware) serve(w http.ResponseWriter, r *http.Request, meta RouteMeta, next http.Handler) {
	d := pm.engine.Decide(r.Context(), meta.Request(middleware.GetAuthContext(r)))
	if !d.Allowed {
		httputil.WriteForbidden(w, d.Reason)
		return
	}
	next.ServeHTTP(w, r)
}
