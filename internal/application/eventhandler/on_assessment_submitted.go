package eventhandler

import (
	"context"
	"log/slog"

	"github.com/learnhub/enrollment-hub/internal/domain/integrity"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ASSESSMENT SUBMITTED HANDLER
// Feeds scored submissions into the integrity profile as score samples.
// Same observational contract as the content handler: nothing here can
// affect the submission that produced the event.
// ═══════════════════════════════════════════════════════════════════════════

// OnAssessmentSubmittedHandler updates the integrity profile on every
// scored submission.
type OnAssessmentSubmittedHandler struct {
	tracker *integrityTracker
	logger  *slog.Logger
}

// NewOnAssessmentSubmittedHandler creates the handler.
func NewOnAssessmentSubmittedHandler(
	integrityRepo integrity.Repository,
	patternSink integrity.PatternPublisher,
	eventPublisher shared.EventPublisher,
	locks *keylock.KeyLock,
	logger *slog.Logger,
) *OnAssessmentSubmittedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("handler", "on_assessment_submitted")

	return &OnAssessmentSubmittedHandler{
		tracker: newIntegrityTracker(integrityRepo, patternSink, eventPublisher, locks, logger),
		logger:  logger,
	}
}

// Name implements shared.EventHandler.
func (h *OnAssessmentSubmittedHandler) Name() string {
	return "on_assessment_submitted"
}

// Handle implements shared.EventHandler.
func (h *OnAssessmentSubmittedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	submitted, ok := event.(shared.AssessmentSubmittedEvent)
	if !ok {
		h.logger.Warn("received unexpected event type",
			"event_type", event.EventType(),
		)
		return nil
	}

	key, err := enrollmentKeyFromEvent(submitted.UserID, submitted.CourseID)
	if err != nil {
		h.logger.Warn("dropping malformed assessment event",
			"user_id", submitted.UserID,
			"course_id", submitted.CourseID,
			"error", err,
		)
		return nil
	}

	sample := integrity.ScoreSample{
		AssessmentID:          shared.AssessmentID(submitted.AssessmentIdentifier),
		Score:                 submitted.Score,
		MaxScore:              submitted.MaxScore,
		CompletionTimeSeconds: submitted.CompletionTimeSeconds,
		Attempts:              submitted.Attempts,
		RecordedAt:            event.OccurredAt(),
	}

	return h.tracker.update(ctx, key, func(p *integrity.Profile) error {
		p.RecordAssessmentEvent(sample, event.OccurredAt())
		return nil
	})
}
