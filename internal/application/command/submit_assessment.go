package command

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/assessment"
	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT ASSESSMENT COMMAND
// Scores a submission against the catalog definition and appends the result
// to the immutable attempt history. Retakes are unlimited; every attempt is
// kept.
// ══════════════════════════════════════════════════════════════════════════════

// AnswerInput is one submitted answer.
type AnswerInput struct {
	// QuestionID identifies the question within the assessment.
	QuestionID string

	// Value is the raw submitted answer. Whitespace-only counts as
	// unanswered.
	Value string
}

// SubmitAssessmentCommand contains a full submission.
type SubmitAssessmentCommand struct {
	// UserID is the stable learner identifier.
	UserID string

	// CourseID is the course the assessment belongs to.
	CourseID string

	// AssessmentID identifies the assessment definition in the catalog.
	AssessmentID string

	// Answers are the submitted answers. Questions without an entry are
	// scored as unanswered.
	Answers []AnswerInput

	// CompletionTimeSeconds is how long the attempt took.
	CompletionTimeSeconds int64

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SubmitAssessmentCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("submit_assessment: user_id is required")
	}
	if c.CourseID == "" {
		return errors.New("submit_assessment: course_id is required")
	}
	if c.AssessmentID == "" {
		return errors.New("submit_assessment: assessment_id is required")
	}
	if c.CompletionTimeSeconds < 0 {
		return errors.New("submit_assessment: completion_time_seconds must not be negative")
	}
	return nil
}

// SubmitAssessmentResult contains the scored submission.
type SubmitAssessmentResult struct {
	// Score is the integer percentage achieved.
	Score int

	// Passed indicates the attempt met the passing score.
	Passed bool

	// EarnedPoints / MaxPoints are the raw point totals.
	EarnedPoints float64
	MaxPoints    int

	// Feedback holds per-question outcomes in definition order.
	Feedback []assessment.QuestionFeedback

	// Attempt is the 1-based attempt number for this (user, assessment).
	Attempt int

	// SubmittedAt is when the submission was scored.
	SubmittedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SubmitAssessmentHandler handles the SubmitAssessmentCommand.
type SubmitAssessmentHandler struct {
	enrollmentRepo enrollment.Repository
	scoreStore     assessment.ScoreStore
	definitions    assessment.DefinitionSource
	locks          *keylock.KeyLock
	eventPublisher shared.EventPublisher
}

// NewSubmitAssessmentHandler creates a new SubmitAssessmentHandler.
func NewSubmitAssessmentHandler(
	enrollmentRepo enrollment.Repository,
	scoreStore assessment.ScoreStore,
	definitions assessment.DefinitionSource,
	locks *keylock.KeyLock,
	eventPublisher shared.EventPublisher,
) *SubmitAssessmentHandler {
	return &SubmitAssessmentHandler{
		enrollmentRepo: enrollmentRepo,
		scoreStore:     scoreStore,
		definitions:    definitions,
		locks:          locks,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the submit assessment command.
func (h *SubmitAssessmentHandler) Handle(
	ctx context.Context,
	cmd SubmitAssessmentCommand,
) (*SubmitAssessmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("submit_assessment: validation failed: %w", err)
	}

	key, err := buildEnrollmentKey(cmd.UserID, cmd.CourseID)
	if err != nil {
		return nil, fmt.Errorf("submit_assessment: %w", err)
	}
	assessmentID := shared.AssessmentID(cmd.AssessmentID)

	// Definition lookup happens before any lock: the catalog read is
	// side-effect free and the definition is immutable per submission.
	def, err := h.definitions.GetAssessment(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, assessment.ErrAssessmentNotFound) {
			return nil, assessment.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("submit_assessment: definition lookup failed: %w", err)
	}
	if def.CourseID != key.CourseID {
		return nil, assessment.ErrAssessmentNotFound
	}

	h.locks.Lock(key.String())
	defer h.locks.Unlock(key.String())

	e, err := h.enrollmentRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, enrollment.ErrNotEnrolled) {
			return nil, enrollment.ErrNotEnrolled
		}
		return nil, fmt.Errorf("submit_assessment: failed to load enrollment: %w", err)
	}
	if !e.IsActive() {
		return nil, enrollment.ErrNotEnrolled
	}

	answers := make([]assessment.Answer, 0, len(cmd.Answers))
	for _, a := range cmd.Answers {
		answers = append(answers, assessment.Answer{
			QuestionID: a.QuestionID,
			Value:      a.Value,
		})
	}

	scored, err := assessment.Score(def, answers)
	if err != nil {
		return nil, fmt.Errorf("submit_assessment: scoring failed: %w", err)
	}

	now := time.Now().UTC()

	priorAttempts, err := h.scoreStore.CountAttempts(ctx, key.UserID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("submit_assessment: failed to count attempts: %w", err)
	}
	attempt := priorAttempts + 1

	record := assessment.NewScore(key.UserID, key.CourseID, assessmentID, scored, cmd.CompletionTimeSeconds, attempt, now)
	if err := h.scoreStore.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("submit_assessment: failed to persist score: %w", err)
	}

	e.Touch(now)
	if err := h.enrollmentRepo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("submit_assessment: failed to touch enrollment: %w", err)
	}

	// The event carries raw point totals on one scale. Consumers that need
	// a percentage derive it from the pair; publishing the derived Score
	// next to MaxPoints would mix units.
	event := shared.NewAssessmentSubmittedEvent(
		key,
		assessmentID,
		int(math.Round(scored.EarnedPoints)),
		scored.MaxPoints,
		scored.Passed,
		cmd.CompletionTimeSeconds,
		attempt,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &SubmitAssessmentResult{
		Score:        scored.Score,
		Passed:       scored.Passed,
		EarnedPoints: scored.EarnedPoints,
		MaxPoints:    scored.MaxPoints,
		Feedback:     scored.Feedback,
		Attempt:      attempt,
		SubmittedAt:  now,
	}, nil
}
