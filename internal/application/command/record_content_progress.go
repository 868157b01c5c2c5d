package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/progress"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD CONTENT PROGRESS COMMAND
// The hot path of the system: upserts a progress record, recomputes the
// overall course progress, and performs the one-and-only transition to
// completed when the overall reaches 100.
// ══════════════════════════════════════════════════════════════════════════════

// ContentAction describes how the learner interacted with the content item.
// It rides along on the progress event for the integrity tracker; the
// progress arithmetic itself ignores it.
type ContentAction string

const (
	// ContentActionStart - the learner opened the content item.
	ContentActionStart ContentAction = "start"

	// ContentActionComplete - the learner finished the content item.
	ContentActionComplete ContentAction = "complete"

	// ContentActionFastForward - the learner jumped ahead within the item.
	ContentActionFastForward ContentAction = "fastforward"

	// ContentActionSkip - the learner skipped the item entirely.
	ContentActionSkip ContentAction = "skip"
)

// IsValid checks if the action is one of the known kinds.
func (a ContentAction) IsValid() bool {
	switch a {
	case ContentActionStart, ContentActionComplete, ContentActionFastForward, ContentActionSkip:
		return true
	}
	return false
}

// RecordContentProgressCommand contains one content interaction.
type RecordContentProgressCommand struct {
	// UserID is the stable learner identifier.
	UserID string

	// CourseID is the course being progressed.
	CourseID string

	// ModuleID locates the module inside the course.
	ModuleID string

	// ContentID locates the content item inside the module.
	ContentID string

	// Progress is the reported completion percentage, valid range 1-100.
	// Zero is not a recordable value: a record exists only because an
	// interaction happened.
	Progress int

	// TimeSpentSeconds is the time spent in this interaction.
	TimeSpentSeconds int64

	// Action describes the interaction kind. Defaults to start, or to
	// complete when progress is 100.
	Action ContentAction

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordContentProgressCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("record_content_progress: user_id is required")
	}
	if c.CourseID == "" {
		return errors.New("record_content_progress: course_id is required")
	}
	if c.ModuleID == "" {
		return errors.New("record_content_progress: module_id is required")
	}
	if c.ContentID == "" {
		return errors.New("record_content_progress: content_id is required")
	}
	if c.Progress < 1 || c.Progress > 100 {
		return progress.ErrInvalidProgressValue
	}
	if c.Action != "" && !c.Action.IsValid() {
		return fmt.Errorf("record_content_progress: unknown action: %s", c.Action)
	}
	return nil
}

// action resolves the effective action for the progress event.
func (c RecordContentProgressCommand) action() ContentAction {
	if c.Action != "" {
		return c.Action
	}
	if c.Progress >= 100 {
		return ContentActionComplete
	}
	return ContentActionStart
}

// RecordContentProgressResult contains the outcome of one interaction.
type RecordContentProgressResult struct {
	// Record is the upserted progress record.
	Record *progress.Record

	// OverallProgress is the recomputed course-level progress.
	OverallProgress shared.Percent

	// CourseCompleted indicates this interaction triggered the transition
	// to completed. True for at most one interaction per enrollment.
	CourseCompleted bool

	// RecordedAt is when the interaction was applied.
	RecordedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordContentProgressHandler handles the RecordContentProgressCommand.
type RecordContentProgressHandler struct {
	enrollmentRepo enrollment.Repository
	progressStore  progress.Store
	locks          *keylock.KeyLock
	eventPublisher shared.EventPublisher
}

// NewRecordContentProgressHandler creates a new RecordContentProgressHandler.
func NewRecordContentProgressHandler(
	enrollmentRepo enrollment.Repository,
	progressStore progress.Store,
	locks *keylock.KeyLock,
	eventPublisher shared.EventPublisher,
) *RecordContentProgressHandler {
	return &RecordContentProgressHandler{
		enrollmentRepo: enrollmentRepo,
		progressStore:  progressStore,
		locks:          locks,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the record content progress command.
//
// All steps run under the per-(user, course) lock, so two interactions for
// the same enrollment never interleave: the upsert, the overall
// recomputation, and the completion check form one serialized unit.
func (h *RecordContentProgressHandler) Handle(
	ctx context.Context,
	cmd RecordContentProgressCommand,
) (*RecordContentProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_content_progress: validation failed: %w", err)
	}

	key, err := buildEnrollmentKey(cmd.UserID, cmd.CourseID)
	if err != nil {
		return nil, fmt.Errorf("record_content_progress: %w", err)
	}

	recordKey := progress.Key{
		UserID:    key.UserID,
		CourseID:  key.CourseID,
		ModuleID:  shared.ModuleID(cmd.ModuleID),
		ContentID: shared.ContentID(cmd.ContentID),
	}

	h.locks.Lock(key.String())
	defer h.locks.Unlock(key.String())

	e, err := h.enrollmentRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, enrollment.ErrNotEnrolled) {
			return nil, enrollment.ErrNotEnrolled
		}
		return nil, fmt.Errorf("record_content_progress: failed to load enrollment: %w", err)
	}
	switch e.Status {
	case enrollment.StatusActive:
		// Recordable.
	case enrollment.StatusCompleted:
		return nil, enrollment.ErrAlreadyCompleted
	default:
		return nil, enrollment.ErrNotEnrolled
	}

	now := time.Now().UTC()
	p := shared.Percent(cmd.Progress)

	record, err := h.upsertRecord(ctx, recordKey, p, cmd.TimeSpentSeconds, now)
	if err != nil {
		return nil, err
	}

	records, err := h.progressStore.ListForCourse(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("record_content_progress: failed to list records: %w", err)
	}
	overall := progress.Overall(records)

	e.Touch(now)
	if err := e.SetProgress(overall); err != nil {
		return nil, fmt.Errorf("record_content_progress: %w", err)
	}
	if err := h.enrollmentRepo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("record_content_progress: failed to update enrollment: %w", err)
	}

	result := &RecordContentProgressResult{
		Record:          record,
		OverallProgress: overall,
		RecordedAt:      now,
	}

	// Overall hits 100 only when every recorded item is at 100 (integer
	// division truncates). The compare-and-set makes the active → completed
	// transition happen exactly once even under duplicate delivery.
	if overall.IsComplete() {
		completed, err := h.enrollmentRepo.CompleteIfActive(ctx, key, now)
		if err != nil {
			return nil, fmt.Errorf("record_content_progress: failed to complete enrollment: %w", err)
		}
		if completed {
			result.CourseCompleted = true
			h.publishEvent(shared.NewCourseCompletedEvent(key, now), cmd.CorrelationID)
		}
	}

	h.publishEvent(shared.NewContentProgressRecordedEvent(
		key,
		recordKey.ModuleID,
		recordKey.ContentID,
		p.Int(),
		cmd.TimeSpentSeconds,
		string(cmd.action()),
		overall.Int(),
	), cmd.CorrelationID)

	return result, nil
}

// upsertRecord creates the record on first interaction or applies the
// interaction to the existing one.
func (h *RecordContentProgressHandler) upsertRecord(
	ctx context.Context,
	key progress.Key,
	p shared.Percent,
	timeSpentSeconds int64,
	now time.Time,
) (*progress.Record, error) {
	record, err := h.progressStore.Get(ctx, key)
	switch {
	case err == nil:
		if err := record.Apply(p, timeSpentSeconds, now); err != nil {
			return nil, fmt.Errorf("record_content_progress: %w", err)
		}
	case errors.Is(err, progress.ErrRecordNotFound):
		record, err = progress.NewRecord(key, p, timeSpentSeconds, now)
		if err != nil {
			return nil, fmt.Errorf("record_content_progress: %w", err)
		}
	default:
		return nil, fmt.Errorf("record_content_progress: failed to load record: %w", err)
	}

	if err := h.progressStore.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("record_content_progress: failed to save record: %w", err)
	}
	return record, nil
}

// publishEvent publishes with an optional correlation ID. Publish failures
// never fail the command.
func (h *RecordContentProgressHandler) publishEvent(event shared.Event, correlationID string) {
	if correlationID != "" {
		switch e := event.(type) {
		case shared.CourseCompletedEvent:
			e.BaseEvent = e.BaseEvent.WithCorrelationID(correlationID)
			event = e
		case shared.ContentProgressRecordedEvent:
			e.BaseEvent = e.BaseEvent.WithCorrelationID(correlationID)
			event = e
		}
	}
	_ = h.eventPublisher.Publish(event)
}
