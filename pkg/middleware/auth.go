package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/coachgate/pkg/auth"
	"github.com/platinummonkey/coachgate/pkg/contextkeys"
	"github.com/platinummonkey/coachgate/pkg/httputil"
	"github.com/platinummonkey/coachgate/pkg/observability"
)

// AuthMiddleware resolves the bearer session token into an AuthContext
type AuthMiddleware struct {
	sessions auth.SessionValidator
	optional bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(sessions auth.SessionValidator, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		session, err := m.sessions.ValidateSession(r.Context(), parts[1])
		if err != nil {
			if !errors.Is(err, auth.ErrSessionNotFound) && !errors.Is(err, auth.ErrSessionExpired) &&
				!errors.Is(err, auth.ErrMalformedToken) {
				observability.FromContext(r.Context()).WithError(err).Error("session validation failed")
				httputil.WriteServiceUnavailable(w, "session store unavailable")
				return
			}
			httputil.WriteUnauthorized(w, "invalid or expired session")
			return
		}

		authCtx := &auth.AuthContext{
			UserID:  session.UserID,
			Session: session,
		}

		ctx := contextkeys.WithAuth(r.Context(), authCtx)
		ctx = contextkeys.WithUserID(ctx, session.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext extracts auth context from request. The organization id
// set by OrgContextMiddleware is merged in when the session carries none.
func GetAuthContext(r *http.Request) *auth.AuthContext {
	authCtx, _ := r.Context().Value(contextkeys.AuthKey).(*auth.AuthContext)
	orgID := contextkeys.GetOrgID(r.Context())

	if authCtx == nil {
		if orgID == "" {
			return nil
		}
		return &auth.AuthContext{OrganizationID: orgID}
	}
	if orgID != "" && authCtx.OrganizationID == "" {
		merged := *authCtx
		merged.OrganizationID = orgID
		return &merged
	}
	return authCtx
}
