// Package rbac decides whether a request may touch a resource of an organization.
//
// # Overview
//
// Access is the combination of three things:
//
//  1. A static permission matrix: role -> resource -> allowed actions
//  2. The caller's membership (and therefore role) in the organization
//  3. The route's requirement: a resource plus the actions it needs
//
// # Resources and Actions
//
// Resources are a closed set:
//
//	ResourceWorkout, ResourceExercise, ResourceComplex      - coach-only
//	ResourceAthlete, ResourceSession,
//	ResourcePersonalRecord, ResourceCompetitorStatus        - members too
//
// Actions are read, create, update and delete. ActionSet is a small
// bitset over them.
//
// # Decisions
//
// Engine.Decide evaluates an AccessRequest in a fixed order:
//
//	bypass route                   -> allow
//	no required actions            -> allow
//	no user or no organization     -> deny "permission check failed"
//	no membership / lookup failure -> deny "permission check failed"
//	any required action granted    -> allow
//	otherwise                      -> deny "forbidden"
//
// A failing membership store is a denial, never an error and never an
// allow. Decision.Cause records the internal reason for logs and
// metrics; it is not serialized.
//
// # Ownership
//
// Some records belong to a single user (an athlete's profile, records,
// competitor status). Use cases that expose them declare an AccessMode
// and call AuthorizeOwned:
//
//	d := engine.AuthorizeOwned(ctx, rbac.ModeCoachOrSelf, req, rbac.OwnedResource{
//		OwnerUserID:    record.UserID,
//		OrganizationID: record.OrganizationID,
//	})
//
// Ownership only counts inside the organization the request was made in.
//
// # Middleware Usage
//
//	gate := rbac.NewPermissionMiddleware(engine)
//	router.Handle("/v1/orgs/{org_id}/coaches",
//		gate.Require(rbac.Route(rbac.ResourceWorkout, rbac.ActionRead))(handler))
//
// Every denial is a 403 with {"error": "<reason>"}.
//
// # Roster
//
// Handlers also serves /v1/orgs/{org_id}/members. Listing needs athlete:read.
// Adding, re-roling and removing members need the matching athlete action
// and the caller must coach the organization.
//
// # Related Packages
//
//   - pkg/orgs: membership store and coach/athlete classifier
//   - pkg/visibility: coach-authored content filters
//   - pkg/middleware: session and organization extraction
package rbac
