package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// EnrollmentRepository implements enrollment.Repository in memory.
type EnrollmentRepository struct {
	mu   sync.RWMutex
	rows map[string]*enrollment.Enrollment // keyed by EnrollmentKey.String()
}

// NewEnrollmentRepository creates an empty in-memory enrollment repository.
func NewEnrollmentRepository() *EnrollmentRepository {
	return &EnrollmentRepository{
		rows: make(map[string]*enrollment.Enrollment),
	}
}

// Create persists a new enrollment. Mirrors the postgres partial unique
// index: a non-dropped enrollment for the pair rejects the insert.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rows[e.Key().String()]; ok && existing.BlocksReenrollment() {
		return enrollment.ErrAlreadyEnrolled
	}

	r.rows[e.Key().String()] = cloneEnrollment(e)
	return nil
}

// Get returns the enrollment for the pair, regardless of status.
func (r *EnrollmentRepository) Get(ctx context.Context, key shared.EnrollmentKey) (*enrollment.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rows[key.String()]
	if !ok {
		return nil, enrollment.ErrNotEnrolled
	}
	return cloneEnrollment(e), nil
}

// Update persists changes to an existing enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[e.Key().String()]; !ok {
		return enrollment.ErrNotEnrolled
	}

	r.rows[e.Key().String()] = cloneEnrollment(e)
	return nil
}

// CompleteIfActive atomically transitions active → completed. The map mutex
// makes the check-and-set a single step, so concurrent duplicate completion
// attempts see exactly one true result.
func (r *EnrollmentRepository) CompleteIfActive(ctx context.Context, key shared.EnrollmentKey, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rows[key.String()]
	if !ok {
		return false, enrollment.ErrNotEnrolled
	}
	if e.Status != enrollment.StatusActive {
		return false, nil
	}

	updated := cloneEnrollment(e)
	if err := updated.Complete(completedAt); err != nil {
		return false, err
	}
	r.rows[key.String()] = updated
	return true, nil
}

// ListByUser returns all enrollments of a learner, newest first.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*enrollment.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*enrollment.Enrollment
	for _, e := range r.rows {
		if e.UserID == userID {
			out = append(out, cloneEnrollment(e))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].EnrolledAt.After(out[j].EnrolledAt)
	})
	return out, nil
}

// ListStale returns active enrollments untouched since the cutoff.
func (r *EnrollmentRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*enrollment.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*enrollment.Enrollment
	for _, e := range r.rows {
		if e.Status == enrollment.StatusActive && e.LastAccessedAt.Before(cutoff) {
			out = append(out, cloneEnrollment(e))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccessedAt.Before(out[j].LastAccessedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByStatus returns per-status enrollment counts for a learner.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context, userID shared.UserID) (map[enrollment.Status]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[enrollment.Status]int)
	for _, e := range r.rows {
		if e.UserID == userID {
			counts[e.Status]++
		}
	}
	return counts, nil
}

// ListActiveUsers returns distinct learners with at least one active
// enrollment, up to limit.
func (r *EnrollmentRepository) ListActiveUsers(ctx context.Context, limit int) ([]shared.UserID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[shared.UserID]struct{})
	for _, e := range r.rows {
		if e.Status == enrollment.StatusActive {
			seen[e.UserID] = struct{}{}
		}
	}

	out := make([]shared.UserID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// cloneEnrollment copies an enrollment so callers never alias stored state.
func cloneEnrollment(e *enrollment.Enrollment) *enrollment.Enrollment {
	c := *e
	if e.CompletedAt != nil {
		completedAt := *e.CompletedAt
		c.CompletedAt = &completedAt
	}
	return &c
}
