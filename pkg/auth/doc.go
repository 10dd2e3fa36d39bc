// Package auth holds caller identity for the coaching platform: organization
// roles, the per-request AuthContext, and read-only session validation.
//
// # Roles
//
// A role is attached to a (user, organization) pair, never to a user globally:
//
//	auth.RoleMember  - athlete-level access
//	auth.RoleAdmin   - coach
//	auth.RoleOwner   - coach that owns the organization
//
// Role.IsCoach is true for admin and owner.
//
// # Sessions
//
// Session tokens have the form cg_<opaque>. Only the SHA256 hash of a token is
// stored, in the user_sessions table. SessionStore never issues sessions; it
// only resolves a bearer token to the owning user id:
//
//	store := auth.NewSessionStore(db)
//	session, err := store.ValidateSession(ctx, token)
//	if errors.Is(err, auth.ErrSessionExpired) {
//		// 401
//	}
package auth
