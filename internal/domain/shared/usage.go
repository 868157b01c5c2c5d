package shared

import (
	"context"
	"time"
)

// UsageSummary is the per-learner aggregate consumed by the subscription
// layer: how many courses are in each state and how many certificates were
// issued. It is derived data, cheap to recompute and safe to cache.
type UsageSummary struct {
	UserID             UserID    `json:"user_id"`
	ActiveCourses      int       `json:"active_courses"`
	CompletedCourses   int       `json:"completed_courses"`
	DroppedCourses     int       `json:"dropped_courses"`
	ExpiredCourses     int       `json:"expired_courses"`
	CertificatesIssued int       `json:"certificates_issued"`
	RefreshedAt        time.Time `json:"refreshed_at"`
}

// UsageStore caches usage summaries. Backed by redis in production; the
// worker's refresh job keeps hot entries warm, queries fall back to a live
// recomputation on a miss.
type UsageStore interface {
	// GetUsageSummary returns the cached summary, or ErrNotFound.
	GetUsageSummary(ctx context.Context, userID UserID) (*UsageSummary, error)

	// SetUsageSummary caches a summary with the given TTL.
	SetUsageSummary(ctx context.Context, summary *UsageSummary, ttl time.Duration) error
}
