// Package httputil provides HTTP utilities for standardized request/response handling.
//
// Every error response is a JSON object with a single "error" field:
//
//	httputil.WriteForbidden(w, "permission check failed")
//	// 403 {"error":"permission check failed"}
//
// JSON parsing rejects unknown fields:
//
//	var req EvaluateRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Middleware:
//
//	router.Use(httputil.RecoveryMiddleware, httputil.LoggingMiddleware(metrics))
//
// LoggingMiddleware must run inside the router so it can label requests
// with the matched route template instead of the raw path.
package httputil
