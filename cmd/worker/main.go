// Package main is the entry point for the enrollment hub background worker.
//
// The worker owns the periodic maintenance the API server should not block
// on:
//   - expiring enrollments whose learners have gone quiet past the
//     staleness window
//   - recomputing and caching usage summaries so the subscription layer
//     reads Redis, not Postgres
//
// It shares the domain and persistence layers with the API server and runs
// as a separate process so a slow sweep never competes with request
// traffic.
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
	"github.com/learnhub/enrollment-hub/internal/application/query"
	"github.com/learnhub/enrollment-hub/internal/domain/certificate"
	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/messaging"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/memory"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/postgres"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/redis"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/scheduler"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/scheduler/jobs"
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
	log.Info("starting enrollment hub worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (the worker also keeps the schema current)
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
		log.Warn("DATABASE_URL not set, using in-memory storage (sweeps see no data from other processes)")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional, required only for the usage refresh job)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, usage refresh disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	var (
		enrollmentRepo  enrollment.Repository
		certificateRepo certificate.Repository
	)

	if dbConn != nil {
		enrollmentRepo = postgres.NewEnrollmentRepository(dbConn)
		certificateRepo = postgres.NewCertificateRepository(dbConn)
	} else {
		enrollmentRepo = memory.NewEnrollmentRepository()
		certificateRepo = memory.NewCertificateRepository()
	}

	var usageStore shared.UsageStore
	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureUsageCache, nil) {
		usageStore = redis.NewUsageStore(redisCache)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	// Expiry publishes enrollment.expired events. Nothing subscribes inside
	// the worker today; the bus is here so sweeps and future consumers share
	// one publishing path with the API server.
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBusConfig.AsyncMode = true
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SCHEDULER AND JOBS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scheduler...")

	schedulerConfig := scheduler.DefaultSchedulerConfig()
	schedulerConfig.Logger = log
	sched := scheduler.NewScheduler(schedulerConfig)

	if cfg.Features.IsEnabled(config.FeatureEnrollmentExpiry, nil) {
		expireConfig := jobs.DefaultExpireEnrollmentsConfig()
		expireConfig.StaleAfter = cfg.Scheduler.EnrollmentStaleAfter
		expireConfig.BatchSize = cfg.Scheduler.ExpiryBatchSize
		expireConfig.Timeout = cfg.Scheduler.JobTimeout

		// A cron line pins the sweep to wall-clock time (off-peak hours);
		// otherwise it just rolls on the configured interval.
		var expireSchedule scheduler.Schedule = scheduler.NewIntervalSchedule(cfg.Scheduler.ExpireEnrollmentsInterval)
		if cfg.Scheduler.ExpireCron != "" {
			expireSchedule, err = scheduler.NewCronSchedule(cfg.Scheduler.ExpireCron)
			if err != nil {
				return fmt.Errorf("invalid SCHEDULER_EXPIRE_CRON: %w", err)
			}
		}

		expireJob := jobs.NewExpireEnrollmentsJob(enrollmentRepo, eventBus, log, expireConfig)
		if err := sched.Register(expireJob, expireSchedule); err != nil {
			return fmt.Errorf("failed to register expiry job: %w", err)
		}
		log.Info("registered job",
			"job", expireJob.Name(),
			"schedule", expireSchedule.String(),
			"stale_after", expireConfig.StaleAfter.String(),
		)
	} else {
		log.Warn("enrollment expiry disabled, stale enrollments stay active")
	}

	if usageStore != nil {
		usageQuery := query.NewGetUsageSummaryHandler(
			enrollmentRepo, certificateRepo, usageStore,
			query.DefaultGetUsageSummaryHandlerConfig(),
		)

		refreshConfig := jobs.DefaultRefreshUsageConfig()
		refreshConfig.Timeout = cfg.Scheduler.JobTimeout
		// The summary must outlive the gap between refreshes.
		if refreshConfig.CacheTTL < 2*cfg.Scheduler.RefreshUsageInterval {
			refreshConfig.CacheTTL = 2 * cfg.Scheduler.RefreshUsageInterval
		}

		refreshJob := jobs.NewRefreshUsageJob(enrollmentRepo, usageQuery, usageStore, log, refreshConfig)
		if err := sched.Register(refreshJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RefreshUsageInterval)); err != nil {
			return fmt.Errorf("failed to register usage refresh job: %w", err)
		}
		log.Info("registered job",
			"job", refreshJob.Name(),
			"interval", cfg.Scheduler.RefreshUsageInterval.String(),
		)
	} else {
		log.Warn("usage refresh job not registered, no usage cache to warm")
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("enrollment hub worker is running")

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	if err := sched.Stop(); err != nil {
		log.Error("scheduler stop failed", "error", err)
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
		"component", "worker",
	)
	slog.SetDefault(log)

	return log
}
