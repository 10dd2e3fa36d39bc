package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/platinummonkey/coachgate/pkg/contextkeys"
	"github.com/platinummonkey/coachgate/pkg/httputil"
	"github.com/platinummonkey/coachgate/pkg/observability"
)

// OrganizationHeader carries the organization for routes without {org_id}
const OrganizationHeader = "X-Organization-ID"

// OrgContextMiddleware adds the organization id to the request context.
// The {org_id} path variable wins over the header. Requests with neither
// pass through without an organization.
func OrgContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := mux.Vars(r)["org_id"]
		if !ok {
			orgID = r.Header.Get(OrganizationHeader)
		}
		if orgID == "" {
			next.ServeHTTP(w, r)
			return
		}

		if _, err := uuid.Parse(orgID); err != nil {
			httputil.WriteBadRequest(w, "invalid organization id")
			return
		}

		ctx := contextkeys.WithOrgID(r.Context(), orgID)
		ctx = observability.WithLogger(ctx, observability.FromContext(ctx).WithField("organization_id", orgID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
