// Package assessment contains assessment scoring: immutable definitions
// consumed from the external course catalog, the pure scorer, and the
// append-only score history per (user, assessment).
package assessment

import (
	"strings"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION TYPES
// ══════════════════════════════════════════════════════════════════════════════

// QuestionType identifies how a question is answered and scored.
type QuestionType string

const (
	// TypeMultipleChoice - objective, exact-match scoring.
	TypeMultipleChoice QuestionType = "multiple_choice"

	// TypeTrueFalse - objective, exact-match scoring.
	TypeTrueFalse QuestionType = "true_false"

	// TypeEssay - subjective; awarded a flat share of points when answered.
	TypeEssay QuestionType = "essay"

	// TypeFileUpload - subjective; treated like essay for scoring.
	TypeFileUpload QuestionType = "file_upload"
)

// IsValid checks if the question type is known.
func (t QuestionType) IsValid() bool {
	switch t {
	case TypeMultipleChoice, TypeTrueFalse, TypeEssay, TypeFileUpload:
		return true
	}
	return false
}

// IsObjective reports whether the type has a single correct answer.
func (t QuestionType) IsObjective() bool {
	return t == TypeMultipleChoice || t == TypeTrueFalse
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// Assessment domain errors.
var (
	ErrAssessmentNotFound = shared.NewDomainError("assessment", "Find", shared.ErrNotFound, "assessment not found")
	ErrNoQuestions        = shared.NewDomainError("assessment", "Score", shared.ErrInvalidEntity, "assessment has no questions")
	ErrScoreNotFound      = shared.NewDomainError("assessment", "FindScore", shared.ErrNotFound, "assessment score not found")
)

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITIONS (owned by the course catalog, read-only here)
// ══════════════════════════════════════════════════════════════════════════════

// Question is one immutable assessment question.
type Question struct {
	// ID identifies the question within its assessment.
	ID string

	// Type determines the scoring rule.
	Type QuestionType

	// Points available for this question.
	Points int

	// CorrectAnswer is set for objective types only.
	CorrectAnswer string
}

// Assessment is an immutable assessment definition.
type Assessment struct {
	// ID identifies the assessment in the catalog.
	ID shared.AssessmentID

	// CourseID is the course this assessment belongs to.
	CourseID shared.CourseID

	// Title for display purposes.
	Title string

	// PassingScore is the minimum integer percentage to pass.
	PassingScore int

	// Questions in presentation order.
	Questions []Question
}

// MaxPoints returns the total points available across all questions.
func (a *Assessment) MaxPoints() int {
	total := 0
	for _, q := range a.Questions {
		total += q.Points
	}
	return total
}

// ══════════════════════════════════════════════════════════════════════════════
// ANSWERS
// ══════════════════════════════════════════════════════════════════════════════

// Answer is one submitted answer, matched to a question by ID.
type Answer struct {
	QuestionID string
	Value      string
}

// IsEmpty reports whether the answer carries no content.
func (a Answer) IsEmpty() bool {
	return strings.TrimSpace(a.Value) == ""
}
