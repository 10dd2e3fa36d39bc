// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry bootstrap, health checks and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("organization_id", orgID).Info("membership cached")
//
// Request handlers use FromContext, which adds the request id, the user id
// and the trace ids of the active span:
//
//	observability.FromContext(r.Context()).WithError(err).Error("lookup failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//
// Metrics satisfies the recorder interfaces of pkg/rbac, pkg/orgs and
// pkg/httputil, so it is passed straight to the engine, the membership
// cache and the logging middleware.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:  true,
//		Endpoint: "otel-collector:4317",
//		Insecure: true,
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(router, checker)
//
// A failing database is unhealthy (503 on /health/ready). A failing Redis
// only degrades the service.
package observability
