package assessment

import (
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORER
// Pure function over an assessment definition and submitted answers.
// Depends on nothing else; safe to call from any goroutine.
// ══════════════════════════════════════════════════════════════════════════════

// essayAwardRate is the flat share of points awarded to essay and file-upload
// questions when any answer is present. There is no content grading here -
// a documented simplification that a real deployment should revisit with a
// human review step.
const essayAwardRate = 0.8

// FeedbackComment values attached to per-question feedback.
const (
	FeedbackCorrect     = "Correct"
	FeedbackIncorrect   = "Incorrect"
	FeedbackNotAnswered = "Not answered"
	FeedbackSubmitted   = "Submitted"
)

// QuestionFeedback reports the outcome of scoring one question.
type QuestionFeedback struct {
	QuestionID    string  `json:"question_id"`
	PointsAwarded float64 `json:"points_awarded"`
	PointsMax     int     `json:"points_max"`
	Comment       string  `json:"comment"`
}

// Result is the outcome of scoring one submission.
type Result struct {
	// Score is the integer percentage, rounded half-up.
	Score int `json:"score"`

	// Passed is Score >= the assessment's passing score.
	Passed bool `json:"passed"`

	// EarnedPoints / MaxPoints are the raw point totals.
	EarnedPoints float64 `json:"earned_points"`
	MaxPoints    int     `json:"max_points"`

	// Feedback contains one entry per question, in definition order.
	Feedback []QuestionFeedback `json:"feedback"`
}

// Score grades the submitted answers against the assessment definition.
//
// Rules:
//   - Objective questions (multiple_choice, true_false) award full points on
//     exact match, zero otherwise.
//   - Essay and file-upload questions award a flat 80% of points when any
//     answer is present.
//   - Unanswered questions award zero with "Not answered" feedback.
//   - Score = round-half-up(100 * earned / max).
func Score(a *Assessment, answers []Answer) (*Result, error) {
	if a == nil || len(a.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	byQuestion := make(map[string]Answer, len(answers))
	for _, ans := range answers {
		byQuestion[ans.QuestionID] = ans
	}

	result := &Result{
		MaxPoints: a.MaxPoints(),
		Feedback:  make([]QuestionFeedback, 0, len(a.Questions)),
	}

	for _, q := range a.Questions {
		fb := QuestionFeedback{
			QuestionID: q.ID,
			PointsMax:  q.Points,
		}

		ans, answered := byQuestion[q.ID]
		switch {
		case !answered || ans.IsEmpty():
			fb.Comment = FeedbackNotAnswered

		case q.Type.IsObjective():
			if ans.Value == q.CorrectAnswer {
				fb.PointsAwarded = float64(q.Points)
				fb.Comment = FeedbackCorrect
			} else {
				fb.Comment = FeedbackIncorrect
			}

		default:
			// Essay / file upload: flat award, no content grading.
			fb.PointsAwarded = essayAwardRate * float64(q.Points)
			fb.Comment = FeedbackSubmitted
		}

		result.EarnedPoints += fb.PointsAwarded
		result.Feedback = append(result.Feedback, fb)
	}

	if result.MaxPoints > 0 {
		result.Score = roundHalfUp(100 * result.EarnedPoints / float64(result.MaxPoints))
	}
	result.Passed = result.Score >= a.PassingScore

	return result, nil
}

// roundHalfUp rounds to the nearest integer with ties going up.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
