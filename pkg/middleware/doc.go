// Package middleware extracts the request context the access gate needs.
//
// # Middleware Components
//
// RequestID: request id and request-scoped logger
//
//	router.Use(middleware.RequestID(logger))
//
// AuthMiddleware: bearer session authentication
//
//	router.Use(middleware.NewAuthMiddleware(auth.NewSessionStore(db), false).Handler)
//	// Validates the session token, adds AuthContext{UserID} to the request
//
// OrgContextMiddleware: organization id from the {org_id} path variable or
// the X-Organization-ID header, validated as a UUID
//
//	router.Use(middleware.OrgContextMiddleware)
//
// GetAuthContext merges the two into one auth.AuthContext for the gate.
// Middleware here never decides access; missing pieces are passed on and
// the gate denies them.
package middleware
