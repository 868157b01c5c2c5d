// Package main is the entry point for the LearnHub Enrollment Hub API server.
//
// The server owns the write side of the enrollment lifecycle: enrolling and
// dropping learners, recording content progress, scoring assessment
// submissions, and issuing certificates. It also serves the read side
// directly: progress summaries, certificate verification, learning pattern
// classifications, usage summaries, and the in-process course dashboards.
//
// Architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries/Event Handlers)
// - Infrastructure: repository implementations, external APIs, messaging
// - Interface: HTTP handlers
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/learnhub/enrollment-hub/config"

	// Application layer
	"github.com/learnhub/enrollment-hub/internal/application/command"
	"github.com/learnhub/enrollment-hub/internal/application/eventhandler"
	"github.com/learnhub/enrollment-hub/internal/application/query"

	// Domain layer
	"github.com/learnhub/enrollment-hub/internal/domain/assessment"
	"github.com/learnhub/enrollment-hub/internal/domain/catalog"
	"github.com/learnhub/enrollment-hub/internal/domain/certificate"
	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/integrity"
	"github.com/learnhub/enrollment-hub/internal/domain/progress"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"

	// Infrastructure layer
	"github.com/learnhub/enrollment-hub/internal/infrastructure/external/catalogapi"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/messaging"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/memory"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/postgres"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/projections"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/learnhub/enrollment-hub/internal/interface/http"
	"github.com/learnhub/enrollment-hub/internal/interface/http/handlers"

	// Packages
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────

	// Load .env if present. Real deployments set actual environment
	// variables; this is a development convenience only.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting enrollment hub API server",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL, optional in development)
	// ─────────────────────────────────────────────────────────────────────────
	var dbConn *postgres.Connection

	if cfg.Database.URL != "" {
		log.Info("connecting to database...")
		dbConn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if err := dbConn.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		log.Info("database connection established")

		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	} else {
		// Validate() rejects this in production.
		log.Warn("DATABASE_URL not set, using in-memory storage (data is lost on restart)")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		}

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, cached reads disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES AND STORES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")

	var (
		enrollmentRepo  enrollment.Repository
		certificateRepo certificate.Repository
		integrityRepo   integrity.Repository
		progressStore   progress.Store
		scoreStore      assessment.ScoreStore
	)

	if dbConn != nil {
		enrollmentRepo = postgres.NewEnrollmentRepository(dbConn)
		certificateRepo = postgres.NewCertificateRepository(dbConn)
		integrityRepo = postgres.NewIntegrityRepository(dbConn)
		progressStore = postgres.NewProgressStore(dbConn)
		scoreStore = postgres.NewScoreStore(dbConn)
	} else {
		enrollmentRepo = memory.NewEnrollmentRepository()
		certificateRepo = memory.NewCertificateRepository()
		integrityRepo = memory.NewIntegrityRepository()
		progressStore = memory.NewProgressStore()
		scoreStore = memory.NewScoreStore()
	}

	var usageStore shared.UsageStore
	var patternSink integrity.PatternPublisher
	if redisCache != nil {
		if cfg.Features.IsEnabled(config.FeatureUsageCache, nil) {
			usageStore = redis.NewUsageStore(redisCache)
		}
		if cfg.Features.IsEnabled(config.FeatureIntegrityPublishing, nil) {
			patternSink = redis.NewPatternStore(redisCache)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS AND DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")

	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBusConfig.AsyncMode = true

	var eventBus shared.EventBus
	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureExperimentalRedisEvents, nil) {
		// Cross-instance fan-out. Redelivery between instances is safe:
		// completion and issuance converge through database compare-and-set.
		eventBus, err = messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewEventBusClient(redisCache),
			LocalBusConfig: eventBusConfig,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to start redis event bus: %w", err)
		}
		log.Info("event bus running over Redis pub/sub")
	} else {
		eventBus = messaging.NewInMemoryEventBus(eventBusConfig)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	dispatcher := messaging.NewDispatcher(messaging.DefaultDispatcherConfig(eventBus))
	defer func() { _ = dispatcher.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EXTERNAL CLIENTS (Course Catalog API)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing external clients...")

	var catalogReader catalog.Reader
	var catalogClient *catalogapi.Client

	if cfg.Catalog.BaseURL != "" {
		clientConfig := catalogapi.DefaultClientConfig(cfg.Catalog.BaseURL)
		clientConfig.APIKey = cfg.Catalog.APIKey
		clientConfig.Timeout = cfg.Catalog.RequestTimeout
		clientConfig.Logger = log
		clientConfig.Debug = cfg.App.Debug
		clientConfig.RateLimiterConfig.RequestsPerSecond = float64(cfg.Catalog.RateLimit)
		clientConfig.RateLimiterConfig.BurstSize = cfg.Catalog.RateLimitBurst
		clientConfig.CircuitBreakerConfig.FailureThreshold = cfg.Catalog.CircuitBreakerThreshold
		clientConfig.CircuitBreakerConfig.Timeout = cfg.Catalog.CircuitBreakerTimeout
		clientConfig.CircuitBreakerConfig.HalfOpenMaxRetries = cfg.Catalog.CircuitBreakerHalfOpenMax
		clientConfig.RetryConfig.MaxRetries = cfg.Catalog.MaxRetries
		clientConfig.RetryConfig.InitialBackoff = cfg.Catalog.RetryBaseDelay
		clientConfig.RetryConfig.MaxBackoff = cfg.Catalog.RetryMaxDelay

		catalogClient = catalogapi.NewClient(clientConfig)
		catalogReader = catalogClient

		// Course structures change rarely; serve them from Redis when we
		// have it so a catalog outage does not take enrollment down with it.
		if redisCache != nil {
			catalogReader = catalogapi.NewCachedReader(catalogClient, redisCache)
		}
	} else {
		log.Warn("CATALOG_API_URL not set, using built-in catalog fixtures")
		catalogReader = memory.NewCatalogReaderWithFixtures()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION HANDLERS (CQRS)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application handlers...")

	locks := keylock.New()

	enrollHandler := command.NewEnrollHandler(enrollmentRepo, catalogReader, locks, eventBus)
	dropHandler := command.NewDropHandler(enrollmentRepo, locks, eventBus)
	recordProgressHandler := command.NewRecordContentProgressHandler(enrollmentRepo, progressStore, locks, eventBus)
	submitAssessmentHandler := command.NewSubmitAssessmentHandler(enrollmentRepo, scoreStore, catalogReader, locks, eventBus)
	issueCertificateHandler := command.NewIssueCertificateHandler(
		certificateRepo, enrollmentRepo, locks, eventBus,
		command.DefaultIssueCertificateHandlerConfig(),
	)

	getProgressHandler := query.NewGetOverallProgressHandler(enrollmentRepo, progressStore)
	getCertificateHandler := query.NewGetCertificateHandler(certificateRepo)
	getPatternHandler := query.NewGetLearningPatternHandler(integrityRepo)
	getUsageHandler := query.NewGetUsageSummaryHandler(
		enrollmentRepo, certificateRepo, usageStore,
		query.DefaultGetUsageSummaryHandlerConfig(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. EVENT HANDLERS AND PROJECTIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	if cfg.Features.IsEnabled(config.FeatureCertificateAutoIssue, nil) {
		onCourseCompleted := eventhandler.NewOnCourseCompletedHandler(issueCertificateHandler, log)
		if err := dispatcher.Register(shared.EventCourseCompleted, onCourseCompleted); err != nil {
			return fmt.Errorf("failed to register event handler: %w", err)
		}
	} else {
		log.Warn("certificate auto-issue disabled, certificates are issued on request only")
	}

	if cfg.Features.IsEnabled(config.FeatureIntegrityTracking, nil) {
		onContentProgress := eventhandler.NewOnContentProgressHandler(
			integrityRepo, patternSink, eventBus, catalogReader, locks, log)
		onAssessmentSubmitted := eventhandler.NewOnAssessmentSubmittedHandler(
			integrityRepo, patternSink, eventBus, locks, log)

		if err := dispatcher.Register(shared.EventContentProgressRecorded, onContentProgress); err != nil {
			return fmt.Errorf("failed to register event handler: %w", err)
		}
		if err := dispatcher.Register(shared.EventAssessmentSubmitted, onAssessmentSubmitted); err != nil {
			return fmt.Errorf("failed to register event handler: %w", err)
		}
	} else {
		log.Warn("integrity tracking disabled, learning patterns stay at their last classification")
	}

	// The dashboard view consumes every event type, so it subscribes to the
	// bus directly instead of going through per-type dispatch.
	dashboardView := projections.NewCourseDashboardView()
	if cfg.Features.IsEnabled(config.FeatureCourseDashboards, nil) {
		if err := eventBus.SubscribeAll(dashboardView); err != nil {
			return fmt.Errorf("failed to subscribe dashboard view: %w", err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	if dbConn != nil {
		healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	}
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}
	if catalogClient != nil {
		healthChecker.AddCheck("catalog", handlers.NewCatalogCheck(catalogClient))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverConfig := httpserver.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	serverConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverConfig.APIKeyHeader = cfg.HTTP.APIKeyHeader
	serverConfig.APIKeys = cfg.HTTP.APIKeys
	serverConfig.EnableCORS = cfg.HTTP.EnableCORS
	serverConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins

	server := httpserver.NewServer(serverConfig, httpserver.Dependencies{
		EnrollHandler:                enrollHandler,
		DropHandler:                  dropHandler,
		RecordContentProgressHandler: recordProgressHandler,
		SubmitAssessmentHandler:      submitAssessmentHandler,
		IssueCertificateHandler:      issueCertificateHandler,
		GetOverallProgressHandler:    getProgressHandler,
		GetCertificateHandler:        getCertificateHandler,
		GetLearningPatternHandler:    getPatternHandler,
		GetUsageSummaryHandler:       getUsageHandler,
		DashboardView:                dashboardView,
		Logger:                       log,
		HealthChecker:                healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("enrollment hub API server is running", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 12. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures the global structured logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.App.Environment == config.EnvProduction {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With(
		"app", cfg.App.Name,
		"component", "server",
	)
	slog.SetDefault(log)

	return log
}
