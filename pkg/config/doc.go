// Package config loads the service configuration.
//
// Values come from three layers, later layers winning:
//
//  1. Default()
//  2. the YAML file named by COACHGATE_CONFIG_FILE, when set
//  3. COACHGATE_* environment variables
//
// # Environment Variables
//
//	COACHGATE_HOST, COACHGATE_PORT                  listen address (0.0.0.0:8080)
//	COACHGATE_DATABASE_URL                          membership database (required)
//	COACHGATE_CACHE_ENABLED, _SIZE, _TTL            in-process membership cache
//	COACHGATE_REDIS_URL                             shared membership cache tier
//	COACHGATE_LOG_LEVEL                             debug, info, warn, error
//	COACHGATE_OTEL_ENABLED, COACHGATE_OTEL_ENDPOINT OTLP gRPC export
//
// # Hot Reload
//
// Watch re-reads the file when it changes. The service only applies the
// log level from a reload; the permission matrix is compiled in and is
// never configurable.
package config
