package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/certificate"
	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USAGE SUMMARY QUERY
// Per-learner aggregates for the subscription layer: how many courses in
// each state, how many certificates. Served from the usage cache when warm
// (the worker refreshes it), recomputed live on a miss.
// ══════════════════════════════════════════════════════════════════════════════

// GetUsageSummaryQuery contains the query parameters.
type GetUsageSummaryQuery struct {
	// UserID is the stable learner identifier.
	UserID string

	// ForceRefresh bypasses the cache and recomputes.
	ForceRefresh bool
}

// Validate validates the query parameters.
func (q *GetUsageSummaryQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_usage_summary: user_id is required")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetUsageSummaryHandler handles the GetUsageSummaryQuery.
type GetUsageSummaryHandler struct {
	enrollmentRepo  enrollment.Repository
	certificateRepo certificate.Repository
	usageStore      shared.UsageStore // optional

	cacheTTL time.Duration
}

// GetUsageSummaryHandlerConfig contains configuration for the handler.
type GetUsageSummaryHandlerConfig struct {
	CacheTTL time.Duration
}

// DefaultGetUsageSummaryHandlerConfig returns default configuration.
func DefaultGetUsageSummaryHandlerConfig() GetUsageSummaryHandlerConfig {
	return GetUsageSummaryHandlerConfig{
		CacheTTL: 5 * time.Minute,
	}
}

// NewGetUsageSummaryHandler creates a new handler. usageStore may be nil;
// the handler then always recomputes.
func NewGetUsageSummaryHandler(
	enrollmentRepo enrollment.Repository,
	certificateRepo certificate.Repository,
	usageStore shared.UsageStore,
	config GetUsageSummaryHandlerConfig,
) *GetUsageSummaryHandler {
	if config.CacheTTL == 0 {
		config = DefaultGetUsageSummaryHandlerConfig()
	}

	return &GetUsageSummaryHandler{
		enrollmentRepo:  enrollmentRepo,
		certificateRepo: certificateRepo,
		usageStore:      usageStore,
		cacheTTL:        config.CacheTTL,
	}
}

// Handle executes the query.
func (h *GetUsageSummaryHandler) Handle(ctx context.Context, q GetUsageSummaryQuery) (*shared.UsageSummary, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_usage_summary: %w", err)
	}

	if h.usageStore != nil && !q.ForceRefresh {
		if cached, err := h.usageStore.GetUsageSummary(ctx, userID); err == nil {
			return cached, nil
		}
	}

	summary, err := h.Compute(ctx, userID)
	if err != nil {
		return nil, err
	}

	if h.usageStore != nil {
		// Best effort; a cold cache only costs the next caller a recompute.
		_ = h.usageStore.SetUsageSummary(ctx, summary, h.cacheTTL)
	}

	return summary, nil
}

// Compute recomputes the summary from the repositories. Exposed for the
// worker's refresh job, which warms the cache with the same arithmetic.
func (h *GetUsageSummaryHandler) Compute(ctx context.Context, userID shared.UserID) (*shared.UsageSummary, error) {
	counts, err := h.enrollmentRepo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_usage_summary: failed to count enrollments: %w", err)
	}

	certificates, err := h.certificateRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_usage_summary: failed to count certificates: %w", err)
	}

	return &shared.UsageSummary{
		UserID:             userID,
		ActiveCourses:      counts[enrollment.StatusActive],
		CompletedCourses:   counts[enrollment.StatusCompleted],
		DroppedCourses:     counts[enrollment.StatusDropped],
		ExpiredCourses:     counts[enrollment.StatusExpired],
		CertificatesIssued: certificates,
		RefreshedAt:        time.Now().UTC(),
	}, nil
}
