package assessment

import (
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// AssessmentScore is the persisted result of one submission. The history is
// append-only per (user, assessment): every attempt produces a new record and
// prior attempts are never mutated or discarded.
type AssessmentScore struct {
	// UserID identifies the learner.
	UserID shared.UserID

	// CourseID is the course the assessment belongs to.
	CourseID shared.CourseID

	// AssessmentID identifies the assessment definition.
	AssessmentID shared.AssessmentID

	// Score is the integer percentage achieved.
	Score int

	// MaxScore is the maximum achievable points at submission time.
	MaxScore int

	// Passed records whether the attempt met the passing score.
	Passed bool

	// CompletionTimeSeconds is how long the attempt took.
	CompletionTimeSeconds int64

	// Attempt is the 1-based attempt number for this (user, assessment).
	Attempt int

	// SubmittedAt is when the submission was scored.
	SubmittedAt time.Time
}

// NewScore builds a score record from a scoring result.
func NewScore(
	userID shared.UserID,
	courseID shared.CourseID,
	assessmentID shared.AssessmentID,
	result *Result,
	completionTimeSeconds int64,
	attempt int,
	now time.Time,
) *AssessmentScore {
	return &AssessmentScore{
		UserID:                userID,
		CourseID:              courseID,
		AssessmentID:          assessmentID,
		Score:                 result.Score,
		MaxScore:              result.MaxPoints,
		Passed:                result.Passed,
		CompletionTimeSeconds: completionTimeSeconds,
		Attempt:               attempt,
		SubmittedAt:           now,
	}
}
