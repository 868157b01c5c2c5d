// Package enrollment contains the enrollment aggregate: the record binding a
// learner to a course and tracking its lifecycle status. This is the core of
// the business logic - there are no external dependencies here.
package enrollment

import (
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status represents the lifecycle state of an enrollment.
//
// State machine:
//
//	active ⇄ dropped    (dropped enrollments can be reactivated)
//	active → completed  (terminal, irreversible)
//	active → expired    (terminal, time-driven housekeeping)
type Status string

const (
	// StatusActive - the learner is currently enrolled.
	StatusActive Status = "active"

	// StatusCompleted - overall progress reached 100. Terminal.
	StatusCompleted Status = "completed"

	// StatusDropped - the learner dropped the course. Reactivatable.
	StatusDropped Status = "dropped"

	// StatusExpired - the enrollment aged out without completion. Terminal.
	StatusExpired Status = "expired"
)

// IsValid checks if the status is one of the known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusDropped, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment domain errors.
var (
	ErrAlreadyEnrolled   = shared.NewDomainError("enrollment", "Enroll", shared.ErrAlreadyExists, "already enrolled in course")
	ErrNotEnrolled       = shared.NewDomainError("enrollment", "Find", shared.ErrNotFound, "not enrolled in course")
	ErrAlreadyCompleted  = shared.NewDomainError("enrollment", "Complete", shared.ErrInvalidState, "enrollment already completed")
	ErrInvalidTransition = shared.NewDomainError("enrollment", "Transition", shared.ErrStateTransition, "invalid enrollment status transition")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment binds a learner to a course. At most one non-dropped enrollment
// exists per (user, course); the repository enforces this with a partial
// unique constraint, the entity enforces the transition rules.
type Enrollment struct {
	// UserID identifies the learner.
	UserID shared.UserID

	// CourseID identifies the course in the external catalog.
	CourseID shared.CourseID

	// Status is the current lifecycle state.
	Status Status

	// Progress is the derived overall progress (0-100). It is never set
	// directly by callers; it is recomputed from progress records.
	Progress shared.Percent

	// EnrolledAt is when the learner enrolled (reset on reactivation).
	EnrolledAt time.Time

	// LastAccessedAt is the last content interaction for this course.
	LastAccessedAt time.Time

	// CompletedAt is set if and only if Status == StatusCompleted.
	CompletedAt *time.Time

	// CreatedAt / UpdatedAt are persistence timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an active enrollment for the given (user, course) pair.
func New(key shared.EnrollmentKey, now time.Time) (*Enrollment, error) {
	if !key.IsValid() {
		return nil, shared.NewDomainError("enrollment", "New", shared.ErrInvalidID, "invalid enrollment key")
	}

	return &Enrollment{
		UserID:         key.UserID,
		CourseID:       key.CourseID,
		Status:         StatusActive,
		Progress:       0,
		EnrolledAt:     now,
		LastAccessedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Key returns the (user, course) aggregate key.
func (e *Enrollment) Key() shared.EnrollmentKey {
	return shared.EnrollmentKey{UserID: e.UserID, CourseID: e.CourseID}
}

// IsActive reports whether the enrollment is in the active state.
func (e *Enrollment) IsActive() bool {
	return e.Status == StatusActive
}

// IsCompleted reports whether the enrollment is completed.
func (e *Enrollment) IsCompleted() bool {
	return e.Status == StatusCompleted
}

// BlocksReenrollment reports whether this enrollment prevents a new enroll
// call for the same pair. Active and completed enrollments block; dropped
// ones are reactivated instead; expired ones block as terminal records.
func (e *Enrollment) BlocksReenrollment() bool {
	return e.Status != StatusDropped
}

// Reactivate transitions a dropped enrollment back to active. EnrolledAt is
// reset; accumulated progress records and scores are kept.
func (e *Enrollment) Reactivate(now time.Time) error {
	if e.Status != StatusDropped {
		return ErrInvalidTransition
	}

	e.Status = StatusActive
	e.EnrolledAt = now
	e.LastAccessedAt = now
	e.CompletedAt = nil
	e.UpdatedAt = now
	return nil
}

// Drop transitions an active enrollment to dropped. Progress records and
// assessment scores are never deleted on drop.
func (e *Enrollment) Drop(now time.Time) error {
	if e.Status != StatusActive {
		return ErrInvalidTransition
	}

	e.Status = StatusDropped
	e.UpdatedAt = now
	return nil
}

// Complete transitions an active enrollment to completed and stamps
// CompletedAt. Completed is terminal.
func (e *Enrollment) Complete(now time.Time) error {
	if e.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	if e.Status != StatusActive {
		return ErrInvalidTransition
	}

	e.Status = StatusCompleted
	e.Progress = shared.MaxPercent
	completedAt := now
	e.CompletedAt = &completedAt
	e.UpdatedAt = now
	return nil
}

// Expire transitions an active enrollment to expired. Driven by the worker's
// housekeeping job, never by the command path.
func (e *Enrollment) Expire(now time.Time) error {
	if e.Status != StatusActive {
		return ErrInvalidTransition
	}

	e.Status = StatusExpired
	e.UpdatedAt = now
	return nil
}

// Touch records a content interaction without changing lifecycle state.
func (e *Enrollment) Touch(now time.Time) {
	e.LastAccessedAt = now
	e.UpdatedAt = now
}

// SetProgress updates the derived overall progress. It does not perform the
// completion transition; that is the enrollment manager's decision point.
func (e *Enrollment) SetProgress(p shared.Percent) error {
	if !p.IsValid() {
		return shared.NewDomainError("enrollment", "SetProgress", shared.ErrValueOutOfRange, "progress must be between 0 and 100")
	}
	e.Progress = p
	return nil
}

// Validate checks the entity invariants, in particular that CompletedAt is
// set if and only if the status is completed.
func (e *Enrollment) Validate() error {
	if !e.Key().IsValid() {
		return shared.NewDomainError("enrollment", "Validate", shared.ErrInvalidID, "invalid enrollment key")
	}
	if !e.Status.IsValid() {
		return shared.NewDomainError("enrollment", "Validate", shared.ErrInvalidState, "unknown enrollment status")
	}
	if !e.Progress.IsValid() {
		return shared.NewDomainError("enrollment", "Validate", shared.ErrValueOutOfRange, "progress out of range")
	}
	if (e.Status == StatusCompleted) != (e.CompletedAt != nil) {
		return shared.NewDomainError("enrollment", "Validate", shared.ErrInvalidState, "completed_at must be set exactly when status is completed")
	}
	return nil
}
