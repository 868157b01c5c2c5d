package eventhandler

import (
	"context"
	"log/slog"

	"github.com/learnhub/enrollment-hub/internal/domain/catalog"
	"github.com/learnhub/enrollment-hub/internal/domain/integrity"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON CONTENT PROGRESS HANDLER
// Feeds content interactions into the integrity profile. Purely
// observational: a malformed event is logged and dropped, a failed update
// is logged and retried by the bus, and in no case does anything flow back
// into the progress write that published the event.
// ═══════════════════════════════════════════════════════════════════════════

// OnContentProgressHandler updates the integrity profile on every content
// interaction.
type OnContentProgressHandler struct {
	tracker       *integrityTracker
	catalogReader catalog.Reader
	logger        *slog.Logger
}

// NewOnContentProgressHandler creates the handler.
func NewOnContentProgressHandler(
	integrityRepo integrity.Repository,
	patternSink integrity.PatternPublisher,
	eventPublisher shared.EventPublisher,
	catalogReader catalog.Reader,
	locks *keylock.KeyLock,
	logger *slog.Logger,
) *OnContentProgressHandler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("handler", "on_content_progress")

	return &OnContentProgressHandler{
		tracker:       newIntegrityTracker(integrityRepo, patternSink, eventPublisher, locks, logger),
		catalogReader: catalogReader,
		logger:        logger,
	}
}

// Name implements shared.EventHandler.
func (h *OnContentProgressHandler) Name() string {
	return "on_content_progress"
}

// Handle implements shared.EventHandler.
func (h *OnContentProgressHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	progressEvent, ok := event.(shared.ContentProgressRecordedEvent)
	if !ok {
		h.logger.Warn("received unexpected event type",
			"event_type", event.EventType(),
		)
		return nil
	}

	key, err := enrollmentKeyFromEvent(progressEvent.UserID, progressEvent.CourseID)
	if err != nil {
		h.logger.Warn("dropping malformed progress event",
			"user_id", progressEvent.UserID,
			"course_id", progressEvent.CourseID,
			"error", err,
		)
		return nil
	}

	action := integrity.Action(progressEvent.Action)
	if !action.IsValid() {
		h.logger.Warn("dropping progress event with unknown action",
			"user_id", progressEvent.UserID,
			"course_id", progressEvent.CourseID,
			"action", progressEvent.Action,
		)
		return nil
	}

	// Chapter count is reporting-only context; catalog unavailability must
	// not stall tracking.
	totalChapters := 0
	if h.catalogReader != nil {
		if structure, err := h.catalogReader.GetCourseStructure(ctx, key.CourseID); err == nil {
			totalChapters = structure.ContentCount()
		}
	}

	return h.tracker.update(ctx, key, func(p *integrity.Profile) error {
		if totalChapters > 0 {
			p.SetTotalChapters(totalChapters)
		}
		return p.RecordContentEvent(action, progressEvent.TimeSpentSeconds, event.OccurredAt())
	})
}

// enrollmentKeyFromEvent rebuilds a typed key from event payload strings.
func enrollmentKeyFromEvent(rawUserID, rawCourseID string) (shared.EnrollmentKey, error) {
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
