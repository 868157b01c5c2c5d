// Package jobs contains implementations of scheduled jobs for the enrollment hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE ENROLLMENTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ExpireEnrollmentsJob sweeps active enrollments whose last content access is
// older than the staleness window and transitions them to expired. Expired is
// a terminal state: the enrollment blocks re-enrollment for the same pair, but
// the learner's recorded progress stays in place.
type ExpireEnrollmentsJob struct {
	enrollmentRepo enrollment.Repository
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	config ExpireEnrollmentsConfig

	lastRunStats atomic.Value // *ExpireEnrollmentsStats
}

// ExpireEnrollmentsConfig contains configuration for the expiry sweep.
type ExpireEnrollmentsConfig struct {
	// StaleAfter is how long an active enrollment may go untouched
	// before it is expired.
	StaleAfter time.Duration

	// BatchSize caps how many enrollments one run expires. The sweep
	// runs on an interval, so a backlog drains across runs.
	BatchSize int

	// Timeout is the maximum duration for the job.
	Timeout time.Duration
}

// DefaultExpireEnrollmentsConfig returns sensible defaults.
func DefaultExpireEnrollmentsConfig() ExpireEnrollmentsConfig {
	return ExpireEnrollmentsConfig{
		StaleAfter: 90 * 24 * time.Hour,
		BatchSize:  500,
		Timeout:    5 * time.Minute,
	}
}

// ExpireEnrollmentsStats contains statistics from an expiry run.
type ExpireEnrollmentsStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	StaleFound     int
	Expired        int
	Skipped        int // changed state between list and update
	EventsPublished int
	Errors         []error
}

// NewExpireEnrollmentsJob creates a new expiry sweep job.
func NewExpireEnrollmentsJob(
	enrollmentRepo enrollment.Repository,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config ExpireEnrollmentsConfig,
) *ExpireEnrollmentsJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &ExpireEnrollmentsJob{
		enrollmentRepo: enrollmentRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
	}
}

// Name returns the job name.
func (j *ExpireEnrollmentsJob) Name() string {
	return "expire_enrollments"
}

// Description returns a human-readable description.
func (j *ExpireEnrollmentsJob) Description() string {
	return "Expires active enrollments with no content access inside the staleness window"
}

// Run executes the expiry sweep.
func (j *ExpireEnrollmentsJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &ExpireEnrollmentsStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	j.logger.Info("starting expire_enrollments job",
		"stale_after", j.config.StaleAfter.String(),
		"batch_size", j.config.BatchSize,
	)

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	cutoff := startedAt.Add(-j.config.StaleAfter)
	stale, err := j.enrollmentRepo.ListStale(ctx, cutoff, j.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale enrollments: %w", err)
	}
	stats.StaleFound = len(stale)

	for _, e := range stale {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := j.expireOne(ctx, e, stats); err != nil {
			stats.Errors = append(stats.Errors, err)
			j.logger.Error("failed to expire enrollment",
				"user_id", e.UserID,
				"course_id", e.CourseID,
				"error", err,
			)
		}
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("expire_enrollments job completed",
		"duration", stats.Duration.String(),
		"stale_found", stats.StaleFound,
		"expired", stats.Expired,
		"skipped", stats.Skipped,
	)

	return nil
}

// expireOne transitions a single enrollment. A learner may have touched the
// course between the list and this update; the entity transition rejects
// anything no longer active and the row is skipped, not failed.
func (j *ExpireEnrollmentsJob) expireOne(ctx context.Context, e *enrollment.Enrollment, stats *ExpireEnrollmentsStats) error {
	now := time.Now()

	if err := e.Expire(now); err != nil {
		stats.Skipped++
		return nil
	}

	if err := j.enrollmentRepo.Update(ctx, e); err != nil {
		return fmt.Errorf("failed to update enrollment %s/%s: %w", e.UserID, e.CourseID, err)
	}
	stats.Expired++

	event := shared.NewEnrollmentExpiredEvent(e.Key(), e.LastAccessedAt)
	if err := j.eventPublisher.Publish(event); err != nil {
		j.logger.Warn("failed to publish expiry event",
			"user_id", e.UserID,
			"course_id", e.CourseID,
			"error", err,
		)
		return nil
	}
	stats.EventsPublished++

	return nil
}

// LastRunStats returns statistics from the last expiry run.
func (j *ExpireEnrollmentsJob) LastRunStats() *ExpireEnrollmentsStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*ExpireEnrollmentsStats)
}
