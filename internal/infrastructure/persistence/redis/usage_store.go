package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// UsageStore implements shared.UsageStore over the generic Redis Cache.
// Summaries are derived data: a missing or expired entry just means the
// caller recomputes from the repositories.
type UsageStore struct {
	cache *Cache
}

// NewUsageStore creates a new UsageStore.
func NewUsageStore(cache *Cache) *UsageStore {
	return &UsageStore{
		cache: cache,
	}
}

// GetUsageSummary returns the cached summary for a learner.
// Returns shared.ErrNotFound on a miss so callers fall back to recomputing.
func (s *UsageStore) GetUsageSummary(ctx context.Context, userID shared.UserID) (*shared.UsageSummary, error) {
	var summary shared.UsageSummary
	err := s.cache.Get(ctx, UsageKey(userID.String()), &summary)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("redis: failed to get usage summary: %w", err)
	}
	return &summary, nil
}

// SetUsageSummary caches a summary with the given TTL.
// A non-positive TTL falls back to TTLUsageSummary.
func (s *UsageStore) SetUsageSummary(ctx context.Context, summary *shared.UsageSummary, ttl time.Duration) error {
	if summary == nil {
		return ErrCacheNilValue
	}
	if ttl <= 0 {
		ttl = TTLUsageSummary
	}
	if err := s.cache.Set(ctx, UsageKey(summary.UserID.String()), summary, ttl); err != nil {
		return fmt.Errorf("redis: failed to set usage summary: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary for a learner.
func (s *UsageStore) Invalidate(ctx context.Context, userID shared.UserID) error {
	return s.cache.Delete(ctx, UsageKey(userID.String()))
}
