// Package progress contains the progress record aggregate: the smallest unit
// of completion tracking, one per content item per learner. Records are
// created on first interaction, mutated on every subsequent interaction, and
// never deleted.
package progress

import (
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status represents the completion state of a single content item.
type Status string

const (
	// StatusNotStarted - no interaction recorded yet. A record in this state
	// never exists in the store: records are created on first interaction
	// and the minimum accepted progress value is 1.
	StatusNotStarted Status = "not_started"

	// StatusInProgress - progress is between 1 and 99.
	StatusInProgress Status = "in_progress"

	// StatusCompleted - progress reached 100. Sticky: a later lower value
	// does not regress a completed record.
	StatusCompleted Status = "completed"
)

// IsValid checks if the status is one of the known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// StatusForProgress derives the record status from a progress value.
func StatusForProgress(p shared.Percent) Status {
	switch {
	case p <= 0:
		return StatusNotStarted
	case p.IsComplete():
		return StatusCompleted
	default:
		return StatusInProgress
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// Progress domain errors.
var (
	ErrInvalidProgressValue = shared.NewDomainError("progress", "Validate", shared.ErrValueOutOfRange, "progress must be between 1 and 100")
	ErrRecordNotFound       = shared.NewDomainError("progress", "Find", shared.ErrNotFound, "progress record not found")
)

// ══════════════════════════════════════════════════════════════════════════════
// KEY
// ══════════════════════════════════════════════════════════════════════════════

// Key identifies a progress record: one per content item per learner.
type Key struct {
	UserID    shared.UserID
	CourseID  shared.CourseID
	ModuleID  shared.ModuleID
	ContentID shared.ContentID
}

// IsValid checks all components of the key.
func (k Key) IsValid() bool {
	return k.UserID.IsValid() && k.CourseID.IsValid() &&
		!k.ModuleID.IsEmpty() && !k.ContentID.IsEmpty()
}

// EnrollmentKey returns the (user, course) aggregate key this record belongs to.
func (k Key) EnrollmentKey() shared.EnrollmentKey {
	return shared.EnrollmentKey{UserID: k.UserID, CourseID: k.CourseID}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS RECORD ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Record tracks a learner's progress through one content item.
type Record struct {
	Key Key

	// Status is derived from Progress, never set independently.
	Status Status

	// Progress is the reported completion percentage (1-100 once created).
	Progress shared.Percent

	// TimeSpentSeconds accumulates across interactions.
	TimeSpentSeconds int64

	// LastAccessedAt is the time of the most recent interaction.
	LastAccessedAt time.Time

	// CompletedAt is stamped when progress first reaches 100.
	CompletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord creates a record for a first interaction with a content item.
// Progress 0 is rejected: a record only comes into existence through an
// interaction, so not_started is not a creatable state.
func NewRecord(key Key, p shared.Percent, timeSpentSeconds int64, now time.Time) (*Record, error) {
	if !key.IsValid() {
		return nil, shared.NewDomainError("progress", "NewRecord", shared.ErrInvalidID, "invalid progress key")
	}
	if p <= 0 || !p.IsValid() {
		return nil, ErrInvalidProgressValue
	}
	if timeSpentSeconds < 0 {
		timeSpentSeconds = 0
	}

	r := &Record{
		Key:              key,
		Status:           StatusForProgress(p),
		Progress:         p,
		TimeSpentSeconds: timeSpentSeconds,
		LastAccessedAt:   now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if r.Status == StatusCompleted {
		completedAt := now
		r.CompletedAt = &completedAt
	}
	return r, nil
}

// Apply records a subsequent interaction: overwrites progress, accumulates
// time spent, and re-derives status. Completion is sticky - once a record is
// completed it stays completed and its progress stays at 100, so concurrent
// or replayed duplicate events cannot regress an aggregate that already
// triggered course completion.
func (r *Record) Apply(p shared.Percent, timeSpentSeconds int64, now time.Time) error {
	if p <= 0 || !p.IsValid() {
		return ErrInvalidProgressValue
	}

	if r.Status != StatusCompleted {
		r.Progress = p
		r.Status = StatusForProgress(p)
		if r.Status == StatusCompleted {
			completedAt := now
			r.CompletedAt = &completedAt
		}
	}

	if timeSpentSeconds > 0 {
		r.TimeSpentSeconds += timeSpentSeconds
	}
	r.LastAccessedAt = now
	r.UpdatedAt = now
	return nil
}

// IsCompleted reports whether the content item is completed.
func (r *Record) IsCompleted() bool {
	return r.Status == StatusCompleted
}
