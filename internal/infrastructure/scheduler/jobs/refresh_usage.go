package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/learnhub/enrollment-hub/internal/application/query"
	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH USAGE JOB
// ══════════════════════════════════════════════════════════════════════════════

// RefreshUsageJob warms the usage summary cache for learners with active
// enrollments. The read path recomputes on a miss anyway; this job keeps the
// common case warm so the subscription layer reads Redis, not Postgres.
type RefreshUsageJob struct {
	enrollmentRepo enrollment.Repository
	usageQuery     *query.GetUsageSummaryHandler
	usageStore     shared.UsageStore
	logger         *slog.Logger

	config RefreshUsageConfig

	lastRunStats atomic.Value // *RefreshUsageStats
}

// RefreshUsageConfig contains configuration for the refresh job.
type RefreshUsageConfig struct {
	// MaxUsers caps how many learners one run refreshes.
	MaxUsers int

	// CacheTTL is the lifetime of each refreshed summary. Keep it longer
	// than the refresh interval or the cache goes cold between runs.
	CacheTTL time.Duration

	// Timeout is the maximum duration for the job.
	Timeout time.Duration
}

// DefaultRefreshUsageConfig returns sensible defaults.
func DefaultRefreshUsageConfig() RefreshUsageConfig {
	return RefreshUsageConfig{
		MaxUsers: 1000,
		CacheTTL: 10 * time.Minute,
		Timeout:  2 * time.Minute,
	}
}

// RefreshUsageStats contains statistics from a refresh run.
type RefreshUsageStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	UsersFound  int
	Refreshed   int
	Errors      []error
}

// NewRefreshUsageJob creates a new usage refresh job.
func NewRefreshUsageJob(
	enrollmentRepo enrollment.Repository,
	usageQuery *query.GetUsageSummaryHandler,
	usageStore shared.UsageStore,
	logger *slog.Logger,
	config RefreshUsageConfig,
) *RefreshUsageJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &RefreshUsageJob{
		enrollmentRepo: enrollmentRepo,
		usageQuery:     usageQuery,
		usageStore:     usageStore,
		logger:         logger,
		config:         config,
	}
}

// Name returns the job name.
func (j *RefreshUsageJob) Name() string {
	return "refresh_usage"
}

// Description returns a human-readable description.
func (j *RefreshUsageJob) Description() string {
	return "Recomputes and caches usage summaries for learners with active enrollments"
}

// Run executes the refresh job.
func (j *RefreshUsageJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RefreshUsageStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	j.logger.Info("starting refresh_usage job", "max_users", j.config.MaxUsers)

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	users, err := j.enrollmentRepo.ListActiveUsers(ctx, j.config.MaxUsers)
	if err != nil {
		return fmt.Errorf("failed to list active users: %w", err)
	}
	stats.UsersFound = len(users)

	for _, userID := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := j.refreshOne(ctx, userID); err != nil {
			stats.Errors = append(stats.Errors, err)
			j.logger.Error("failed to refresh usage summary",
				"user_id", userID,
				"error", err,
			)
			continue
		}
		stats.Refreshed++
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("refresh_usage job completed",
		"duration", stats.Duration.String(),
		"users_found", stats.UsersFound,
		"refreshed", stats.Refreshed,
		"errors", len(stats.Errors),
	)

	return nil
}

func (j *RefreshUsageJob) refreshOne(ctx context.Context, userID shared.UserID) error {
	summary, err := j.usageQuery.Compute(ctx, userID)
	if err != nil {
		return err
	}
	return j.usageStore.SetUsageSummary(ctx, summary, j.config.CacheTTL)
}

// LastRunStats returns statistics from the last refresh run.
func (j *RefreshUsageJob) LastRunStats() *RefreshUsageStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RefreshUsageStats)
}
