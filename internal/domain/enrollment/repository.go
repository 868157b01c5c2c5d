package enrollment

import (
	"context"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// Repository defines persistence operations for enrollments. Implementations
// must serialize mutations per (user, course) key: the postgres implementation
// uses row locks and a partial unique index, the in-memory implementation a
// per-key mutex.
type Repository interface {
	// Create persists a new enrollment. Returns ErrAlreadyEnrolled when a
	// non-dropped enrollment already exists for the pair.
	Create(ctx context.Context, e *Enrollment) error

	// Get returns the enrollment for the pair, regardless of status.
	// Returns ErrNotEnrolled when no enrollment exists.
	Get(ctx context.Context, key shared.EnrollmentKey) (*Enrollment, error)

	// Update persists changes to an existing enrollment.
	Update(ctx context.Context, e *Enrollment) error

	// CompleteIfActive atomically transitions active → completed and stamps
	// completedAt. Returns true when this call performed the transition,
	// false when the enrollment was already completed or not active. This
	// compare-and-set is the exactly-once guard for completion under
	// concurrent duplicate progress events.
	CompleteIfActive(ctx context.Context, key shared.EnrollmentKey, completedAt time.Time) (bool, error)

	// ListByUser returns all enrollments of a learner, newest first.
	ListByUser(ctx context.Context, userID shared.UserID) ([]*Enrollment, error)

	// ListStale returns active enrollments whose LastAccessedAt is older
	// than the cutoff. Used by the expiration housekeeping job.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*Enrollment, error)

	// CountByStatus returns per-status enrollment counts for a learner.
	// Exposed read-only to the subscription/usage layer.
	CountByStatus(ctx context.Context, userID shared.UserID) (map[Status]int, error)

	// ListActiveUsers returns distinct learners holding at least one active
	// enrollment, up to limit. Used by the usage summary refresh job.
	ListActiveUsers(ctx context.Context, limit int) ([]shared.UserID, error)
}
