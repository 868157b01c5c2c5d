// Package eventhandler contains the async consumers of domain events.
// Everything here runs on the event bus side: failures are logged, retried
// where safe, and never propagate back into the command that published the
// event.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/learnhub/enrollment-hub/internal/application/command"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON COURSE COMPLETED HANDLER
// Consumes the course-completed event and drives certificate issuance. The
// command path only performs the lifecycle transition; the certificate is
// created here, asynchronously. Issuance is idempotent, so redelivery of
// the event is harmless.
// ═══════════════════════════════════════════════════════════════════════════

// OnCourseCompletedHandler issues a certificate when a course is completed.
type OnCourseCompletedHandler struct {
	issueCertificate *command.IssueCertificateHandler
	logger           *slog.Logger
}

// NewOnCourseCompletedHandler creates the handler.
func NewOnCourseCompletedHandler(
	issueCertificate *command.IssueCertificateHandler,
	logger *slog.Logger,
) *OnCourseCompletedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnCourseCompletedHandler{
		issueCertificate: issueCertificate,
		logger:           logger.With("handler", "on_course_completed"),
	}
}

// Name implements shared.EventHandler.
func (h *OnCourseCompletedHandler) Name() string {
	return "on_course_completed"
}

// Handle implements shared.EventHandler.
func (h *OnCourseCompletedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	completed, ok := event.(shared.CourseCompletedEvent)
	if !ok {
		h.logger.Warn("received unexpected event type",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing course completed event",
		"user_id", completed.UserID,
		"course_id", completed.CourseID,
	)

	result, err := h.issueCertificate.Handle(ctx, command.IssueCertificateCommand{
		UserID:        completed.UserID,
		CourseID:      completed.CourseID,
		CorrelationID: completed.CorrelationID,
	})
	if err != nil {
		h.logger.Error("certificate issuance failed",
			"user_id", completed.UserID,
			"course_id", completed.CourseID,
			"error", err,
		)
		return fmt.Errorf("issue certificate: %w", err)
	}

	h.logger.Info("certificate ready",
		"user_id", completed.UserID,
		"course_id", completed.CourseID,
		"certificate_number", result.Certificate.Number,
		"already_issued", result.AlreadyIssued,
	)
	return nil
}
