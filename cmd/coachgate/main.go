package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/platinummonkey/coachgate/pkg/auth"
	"github.com/platinummonkey/coachgate/pkg/config"
	"github.com/platinummonkey/coachgate/pkg/httputil"
	"github.com/platinummonkey/coachgate/pkg/middleware"
	"github.com/platinummonkey/coachgate/pkg/observability"
	"github.com/platinummonkey/coachgate/pkg/orgs"
	"github.com/platinummonkey/coachgate/pkg/rbac"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var migrateOnly = flag.Bool("migrate", false, "Apply database migrations and exit")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coachgate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", observability.DefaultServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}

	if *migrateOnly {
		defer db.Close()
		return orgs.RunMigrations(ctx, db, logger)
	}

	otelCfg := cfg.Observability.OTel()
	otelCfg.ServiceVersion = version
	providers, err := observability.InitOTel(ctx, otelCfg, logger)
	if err != nil {
		db.Close()
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	decisionRecorders := []rbac.DecisionRecorder{metrics}
	cacheRecorders := []orgs.CacheRecorder{metrics}
	if otelMetrics, err := observability.NewOTelMetrics(otel.GetMeterProvider()); err != nil {
		logger.WithError(err).Warn("OpenTelemetry metrics unavailable")
	} else {
		decisionRecorders = append(decisionRecorders, otelMetrics)
		cacheRecorders = append(cacheRecorders, otelMetrics)
	}

	store := orgs.NewPostgresService(db)
	var (
		members     orgs.Service  = store
		resolver    orgs.Resolver = store
		cache       *orgs.CachedResolver
		redisClient *redis.Client
	)

	if cfg.Cache.Enabled {
		opts := []orgs.CacheOption{
			orgs.WithCacheRecorder(orgs.MultiCacheRecorder(cacheRecorders...)),
			orgs.WithCacheLogger(logger),
		}
		if cfg.Cache.RedisURL != "" {
			redisClient, err = orgs.NewRedisClient(ctx, cfg.Cache.RedisURL, cfg.Cache.RedisPoolSize)
			if err != nil {
				db.Close()
				return err
			}
			opts = append(opts, orgs.WithSharedCache(orgs.NewRedisCache(redisClient, cfg.Cache.TTL)))
		}

		cache = orgs.NewCachedResolver(store, cfg.Cache.Size, cfg.Cache.TTL, opts...)
		cached := orgs.NewCachedService(store, cache)
		members, resolver = cached, cached
		logger.WithFields(map[string]interface{}{
			"size":   cfg.Cache.Size,
			"ttl":    cfg.Cache.TTL.String(),
			"shared": redisClient != nil,
		}).Info("membership cache enabled")
	}

	engine := rbac.NewEngine(rbac.NewMatrix(), resolver,
		rbac.WithLogger(logger),
		rbac.WithDecisionRecorder(rbac.MultiRecorder(decisionRecorders...)),
	)
	// role lookups share the cache; directory listings always read the store
	classifier := orgs.NewClassifier(resolver, store)
	handlers := rbac.NewHandlers(engine, members, classifier)

	router := mux.NewRouter()
	router.Use(
		middleware.RequestID(logger),
		httputil.RecoveryMiddleware,
		httputil.LoggingMiddleware(metrics),
	)
	observability.RegisterHealthRoutes(router, observability.NewHealthChecker(db, redisClient, version))
	if cfg.Observability.MetricsEnabled {
		router.Handle("/metrics", observability.MetricsHandler(registry)).Methods(http.MethodGet)
	}

	api := router.NewRoute().Subrouter()
	api.Use(
		middleware.NewAuthMiddleware(auth.NewSessionStore(db), false).Handler,
		middleware.OrgContextMiddleware,
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(1<<20),
	)
	handlers.RegisterRoutes(api)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      otelhttp.NewHandler(router, "coachgate"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Observability.GaugeSchedule, func() {
		defer observability.RecoverPanic(logger, "gauge refresh")
		metrics.UpdateDBStats(db.Stats())
		if cache != nil {
			metrics.SetMembershipCacheEntries(cache.Len())
		}
	}); err != nil {
		db.Close()
		return fmt.Errorf("invalid gauge schedule %q: %w", cfg.Observability.GaugeSchedule, err)
	}
	scheduler.Start()

	if path := os.Getenv(config.FileEnv); path != "" {
		err := config.Watch(ctx, path, logger, func(reloaded *config.Config) {
			logger.SetLevel(reloaded.Observability.Level())
		})
		if err != nil {
			logger.WithError(err).Warn("config hot reload disabled")
		}
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.Register("cron", func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	shutdown.Register("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	}
	shutdown.Register("database", func(context.Context) error { return db.Close() })

	go func() {
		logger.WithFields(map[string]interface{}{
			"addr":    server.Addr,
			"version": version,
		}).Info("coachgate listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server failed")
			cancel()
		}
	}()

	return shutdown.WaitForShutdown(ctx)
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
