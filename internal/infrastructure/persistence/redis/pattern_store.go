package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/integrity"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// PatternChannel is the pub/sub channel pattern changes are announced on.
const PatternChannel = PrefixPubSub + "learning_pattern"

// PatternView is the published shape of a classification. Dashboards read
// only this: the tracker's internal counters never leave the profile store.
type PatternView struct {
	UserID      string    `json:"user_id"`
	CourseID    string    `json:"course_id"`
	Pattern     string    `json:"pattern"`
	Flags       []string  `json:"flags"`
	PublishedAt time.Time `json:"published_at"`
}

// PatternStore implements integrity.PatternPublisher over the generic
// Redis Cache. Every publish rewrites the view key and announces the
// change on PatternChannel.
type PatternStore struct {
	cache *Cache
}

// NewPatternStore creates a new PatternStore.
func NewPatternStore(cache *Cache) *PatternStore {
	return &PatternStore{
		cache: cache,
	}
}

// PublishPattern makes the current classification readable downstream.
func (s *PatternStore) PublishPattern(ctx context.Context, key shared.EnrollmentKey, pattern integrity.Pattern, flags []string) error {
	if flags == nil {
		flags = []string{}
	}
	view := PatternView{
		UserID:      key.UserID.String(),
		CourseID:    key.CourseID.String(),
		Pattern:     pattern.String(),
		Flags:       flags,
		PublishedAt: time.Now().UTC(),
	}

	cacheKey := PatternKey(view.UserID, view.CourseID)
	if err := s.cache.Set(ctx, cacheKey, view, TTLPatternView); err != nil {
		return fmt.Errorf("redis: failed to publish pattern: %w", err)
	}

	// The view key is the source of truth; the channel is a nudge for
	// live dashboards. A failed announce is not a failed publish.
	_ = s.cache.Publish(ctx, PatternChannel, view)

	return nil
}

// GetPattern returns the published classification for the pair.
// Returns shared.ErrNotFound when nothing has been published.
func (s *PatternStore) GetPattern(ctx context.Context, key shared.EnrollmentKey) (*PatternView, error) {
	var view PatternView
	err := s.cache.Get(ctx, PatternKey(key.UserID.String(), key.CourseID.String()), &view)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("redis: failed to get pattern: %w", err)
	}
	return &view, nil
}
