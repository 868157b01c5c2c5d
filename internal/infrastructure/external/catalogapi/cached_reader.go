package catalogapi

import (
	"context"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/assessment"
	"github.com/learnhub/enrollment-hub/internal/domain/catalog"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/redis"
)

// Cache keys and TTLs for catalog data. Definitions change rarely, but a
// bounded TTL keeps a republished course from being served stale forever.
const (
	courseKeyPrefix     = "catalog:course:"
	assessmentKeyPrefix = "catalog:assessment:"
	catalogCacheTTL     = 15 * time.Minute
)

// CachedReader wraps a catalog.Reader with a Redis read-through cache.
// Misses and cache failures fall through to the inner reader; a broken
// cache degrades to slower reads, never to errors.
type CachedReader struct {
	inner catalog.Reader
	cache *redis.Cache
}

var _ catalog.Reader = (*CachedReader)(nil)

// NewCachedReader creates a CachedReader over the given reader.
func NewCachedReader(inner catalog.Reader, cache *redis.Cache) *CachedReader {
	return &CachedReader{
		inner: inner,
		cache: cache,
	}
}

// GetCourseStructure implements catalog.Reader.
func (r *CachedReader) GetCourseStructure(ctx context.Context, courseID shared.CourseID) (*catalog.CourseStructure, error) {
	key := courseKeyPrefix + courseID.String()

	var cached catalog.CourseStructure
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	structure, err := r.inner.GetCourseStructure(ctx, courseID)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, key, structure, catalogCacheTTL)
	return structure, nil
}

// GetAssessment implements catalog.Reader.
func (r *CachedReader) GetAssessment(ctx context.Context, id shared.AssessmentID) (*assessment.Assessment, error) {
	key := assessmentKeyPrefix + id.String()

	var cached assessment.Assessment
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	def, err := r.inner.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, key, def, catalogCacheTTL)
	return def, nil
}

// Invalidate drops cached entries for a course and its assessments.
func (r *CachedReader) Invalidate(ctx context.Context, courseID shared.CourseID) error {
	return r.cache.Delete(ctx, courseKeyPrefix+courseID.String())
}
