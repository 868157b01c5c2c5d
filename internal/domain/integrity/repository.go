package integrity

import (
	"context"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// Profile domain errors.
var (
	ErrProfileNotFound = shared.NewDomainError("integrity", "Find", shared.ErrNotFound, "integrity profile not found")
)

// Repository persists integrity profiles. Keyed like the enrollment
// aggregate but with an independent write path: a lock here must never
// block the enrollment manager's.
type Repository interface {
	// Get returns the profile for the pair, or ErrProfileNotFound.
	Get(ctx context.Context, key shared.EnrollmentKey) (*Profile, error)

	// Save upserts a profile. Profiles are never deleted.
	Save(ctx context.Context, p *Profile) error
}

// PatternPublisher exposes the published classification to downstream
// consumers (instructor dashboards). Internal counters stay private to
// the tracker.
type PatternPublisher interface {
	// PublishPattern makes the current classification readable downstream.
	PublishPattern(ctx context.Context, key shared.EnrollmentKey, pattern Pattern, flags []string) error
}
