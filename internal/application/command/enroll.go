// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/catalog"
	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL COMMAND
// Enrolls a learner into a course. A dropped enrollment for the same pair is
// reactivated instead of duplicated; active and completed enrollments reject
// the request.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollCommand contains the data to enroll a learner.
type EnrollCommand struct {
	// UserID is the stable learner identifier from the Identity service.
	UserID string

	// CourseID is the course identifier from the Course Catalog.
	CourseID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EnrollCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("enroll: user_id is required")
	}
	if c.CourseID == "" {
		return errors.New("enroll: course_id is required")
	}
	return nil
}

// EnrollResult contains the result of an enrollment.
type EnrollResult struct {
	// Enrollment is the resulting active enrollment.
	Enrollment *enrollment.Enrollment

	// Reactivated indicates a dropped enrollment was brought back instead
	// of a new one being created.
	Reactivated bool

	// EnrolledAt is the (possibly reset) enrollment timestamp.
	EnrolledAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// EnrollHandler handles the EnrollCommand.
type EnrollHandler struct {
	enrollmentRepo enrollment.Repository
	catalogReader  catalog.Reader
	locks          *keylock.KeyLock
	eventPublisher shared.EventPublisher
}

// NewEnrollHandler creates a new EnrollHandler.
func NewEnrollHandler(
	enrollmentRepo enrollment.Repository,
	catalogReader catalog.Reader,
	locks *keylock.KeyLock,
	eventPublisher shared.EventPublisher,
) *EnrollHandler {
	return &EnrollHandler{
		enrollmentRepo: enrollmentRepo,
		catalogReader:  catalogReader,
		locks:          locks,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the enroll command.
func (h *EnrollHandler) Handle(ctx context.Context, cmd EnrollCommand) (*EnrollResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("enroll: validation failed: %w", err)
	}

	key, err := buildEnrollmentKey(cmd.UserID, cmd.CourseID)
	if err != nil {
		return nil, fmt.Errorf("enroll: %w", err)
	}

	// The course must exist in the catalog before any enrollment state is
	// created. Catalog unavailability fails the request; it never produces
	// a half-enrolled state.
	if _, err := h.catalogReader.GetCourseStructure(ctx, key.CourseID); err != nil {
		return nil, fmt.Errorf("enroll: course lookup failed: %w", err)
	}

	h.locks.Lock(key.String())
	defer h.locks.Unlock(key.String())

	now := time.Now().UTC()

	existing, err := h.enrollmentRepo.Get(ctx, key)
	switch {
	case err == nil:
		return h.handleExisting(ctx, existing, cmd, now)
	case errors.Is(err, enrollment.ErrNotEnrolled):
		return h.handleNew(ctx, key, cmd, now)
	default:
		return nil, fmt.Errorf("enroll: failed to load enrollment: %w", err)
	}
}

// handleNew creates a fresh active enrollment.
func (h *EnrollHandler) handleNew(
	ctx context.Context,
	key shared.EnrollmentKey,
	cmd EnrollCommand,
	now time.Time,
) (*EnrollResult, error) {
	e, err := enrollment.New(key, now)
	if err != nil {
		return nil, fmt.Errorf("enroll: %w", err)
	}

	if err := h.enrollmentRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("enroll: failed to create enrollment: %w", err)
	}

	h.publish(shared.NewEnrollmentCreatedEvent(key, false), cmd.CorrelationID)

	return &EnrollResult{
		Enrollment: e,
		EnrolledAt: e.EnrolledAt,
	}, nil
}

// handleExisting reactivates a dropped enrollment or rejects the request.
func (h *EnrollHandler) handleExisting(
	ctx context.Context,
	e *enrollment.Enrollment,
	cmd EnrollCommand,
	now time.Time,
) (*EnrollResult, error) {
	if e.BlocksReenrollment() {
		return nil, enrollment.ErrAlreadyEnrolled
	}

	// Dropped enrollment: reactivate in place. History (progress records,
	// assessment scores) is kept.
	if err := e.Reactivate(now); err != nil {
		return nil, fmt.Errorf("enroll: failed to reactivate: %w", err)
	}
	if err := h.enrollmentRepo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("enroll: failed to save reactivation: %w", err)
	}

	h.publish(shared.NewEnrollmentCreatedEvent(e.Key(), true), cmd.CorrelationID)

	return &EnrollResult{
		Enrollment:  e,
		Reactivated: true,
		EnrolledAt:  e.EnrolledAt,
	}, nil
}

// publish sends an enrollment event, attaching the correlation ID when set.
func (h *EnrollHandler) publish(event shared.EnrollmentCreatedEvent, correlationID string) {
	if correlationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(correlationID)
	}
	_ = h.eventPublisher.Publish(event)
}

// buildEnrollmentKey validates the raw IDs into a typed key.
func buildEnrollmentKey(rawUserID, rawCourseID string) (shared.EnrollmentKey, error) {
	userID, err := shared.NewUserID(rawUserID)
	if err != nil {
		return shared.EnrollmentKey{}, err
	}
	courseID, err := shared.NewCourseID(rawCourseID)
	if err != nil {
		return shared.EnrollmentKey{}, err
	}
	return shared.NewEnrollmentKey(userID, courseID)
}
