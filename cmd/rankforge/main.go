package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/rankforge/rankforge/pkg/api"
	"github.com/rankforge/rankforge/pkg/authz"
	"github.com/rankforge/rankforge/pkg/billing"
	"github.com/rankforge/rankforge/pkg/config"
	"github.com/rankforge/rankforge/pkg/entitlement"
	"github.com/rankforge/rankforge/pkg/observability"
	"github.com/rankforge/rankforge/pkg/storage"
	"github.com/rankforge/rankforge/pkg/teams"
	"github.com/rankforge/rankforge/pkg/usage"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", "rankforge-policy")
	logger.Infof("Starting rankforge policy service v%s", version)

	ctx := context.Background()

	// OpenTelemetry
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry, continuing without tracing")
	}

	// Backing stores
	db, err := storage.OpenPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer db.Close()

	if err := teams.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := storage.OpenRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	// Domain wiring
	teamRepo := teams.NewPostgresRepository(db)
	evaluator := authz.NewEvaluator(teamRepo, cfg.Policy.DecisionCacheTTL)
	if metrics != nil {
		evaluator.SetCacheHooks(
			func() { metrics.CacheHitsTotal.WithLabelValues("decision").Inc() },
			func() { metrics.CacheMissesTotal.WithLabelValues("decision").Inc() },
		)
	}
	memberGuard := authz.NewMemberGuard(teamRepo)

	usageStore := usage.NewRedisStore(redisClient)
	billingProvider := billing.NewPostgresProvider(db)
	entitlementGuard := entitlement.NewGuard(entitlement.NewCatalog(), billingProvider, usageStore, metrics).
		WithFallbackPlan(cfg.Policy.FallbackPlanID)
	recorder := entitlement.NewRecorder(usageStore, logger, metrics)

	snapshotter := usage.NewSnapshotter(usageStore, usage.NewPostgresStore(db), logger)
	if err := snapshotter.Start(cfg.Policy.SnapshotSchedule); err != nil {
		log.Fatalf("Failed to start usage snapshotter: %v", err)
	}

	server := api.NewServer(api.Deps{
		Evaluator:   evaluator,
		MemberGuard: memberGuard,
		Entitlement: entitlementGuard,
		Recorder:    recorder,
		Teams:       teamRepo,
		Plans:       entitlement.NewCatalog(),
		Logger:      logger,
		Metrics:     metrics,
	})

	var handler http.Handler = server
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "rankforge-policy")
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for k8s probes
	health := observability.NewHealthChecker(db, redisClient, version)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, apiServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		snapshotter.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	var group errgroup.Group
	group.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
	logger.Info("Service stopped")
}
