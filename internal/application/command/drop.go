package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

// ══════════════════════════════════════════════════════════════════════════════
// DROP COMMAND
// Drops an active enrollment. Progress records and assessment scores are
// kept, so a later re-enrollment resumes from them.
// ══════════════════════════════════════════════════════════════════════════════

// DropCommand contains the data to drop an enrollment.
type DropCommand struct {
	// UserID is the stable learner identifier.
	UserID string

	// CourseID is the course to drop.
	CourseID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c DropCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("drop: user_id is required")
	}
	if c.CourseID == "" {
		return errors.New("drop: course_id is required")
	}
	return nil
}

// DropResult contains the result of dropping an enrollment.
type DropResult struct {
	// Enrollment is the enrollment in its dropped state.
	Enrollment *enrollment.Enrollment

	// DroppedAt is when the drop took effect.
	DroppedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// DropHandler handles the DropCommand.
type DropHandler struct {
	enrollmentRepo enrollment.Repository
	locks          *keylock.KeyLock
	eventPublisher shared.EventPublisher
}

// NewDropHandler creates a new DropHandler.
func NewDropHandler(
	enrollmentRepo enrollment.Repository,
	locks *keylock.KeyLock,
	eventPublisher shared.EventPublisher,
) *DropHandler {
	return &DropHandler{
		enrollmentRepo: enrollmentRepo,
		locks:          locks,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the drop command.
func (h *DropHandler) Handle(ctx context.Context, cmd DropCommand) (*DropResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("drop: validation failed: %w", err)
	}

	key, err := buildEnrollmentKey(cmd.UserID, cmd.CourseID)
	if err != nil {
		return nil, fmt.Errorf("drop: %w", err)
	}

	h.locks.Lock(key.String())
	defer h.locks.Unlock(key.String())

	e, err := h.enrollmentRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, enrollment.ErrNotEnrolled) {
			return nil, enrollment.ErrNotEnrolled
		}
		return nil, fmt.Errorf("drop: failed to load enrollment: %w", err)
	}

	now := time.Now().UTC()
	if err := e.Drop(now); err != nil {
		return nil, fmt.Errorf("drop: %w", err)
	}

	if err := h.enrollmentRepo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("drop: failed to save enrollment: %w", err)
	}

	event := shared.NewEnrollmentDroppedEvent(key)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &DropResult{
		Enrollment: e,
		DroppedAt:  now,
	}, nil
}
