package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourChoiceAssessment() *Assessment {
	return &Assessment{
		ID:           "quiz-1",
		CourseID:     "course-go",
		Title:        "Module quiz",
		PassingScore: 70,
		Questions: []Question{
			{ID: "q1", Type: TypeMultipleChoice, Points: 25, CorrectAnswer: "a"},
			{ID: "q2", Type: TypeMultipleChoice, Points: 25, CorrectAnswer: "b"},
			{ID: "q3", Type: TypeMultipleChoice, Points: 25, CorrectAnswer: "c"},
			{ID: "q4", Type: TypeMultipleChoice, Points: 25, CorrectAnswer: "d"},
		},
	}
}

func TestScore_ThreeOfFourCorrect(t *testing.T) {
	answers := []Answer{
		{QuestionID: "q1", Value: "a"},
		{QuestionID: "q2", Value: "b"},
		{QuestionID: "q3", Value: "c"},
		{QuestionID: "q4", Value: "x"},
	}

	result, err := Score(fourChoiceAssessment(), answers)
	require.NoError(t, err)

	assert.Equal(t, 75, result.Score)
	assert.True(t, result.Passed)
	assert.Equal(t, 75.0, result.EarnedPoints)
	assert.Equal(t, 100, result.MaxPoints)
}

func TestScore_UnansweredGetsZeroAndFeedback(t *testing.T) {
	answers := []Answer{
		{QuestionID: "q1", Value: "a"},
		{QuestionID: "q2", Value: "   "}, // whitespace counts as unanswered
	}

	result, err := Score(fourChoiceAssessment(), answers)
	require.NoError(t, err)

	assert.Equal(t, 25, result.Score)
	assert.False(t, result.Passed)

	require.Len(t, result.Feedback, 4)
	assert.Equal(t, FeedbackCorrect, result.Feedback[0].Comment)
	assert.Equal(t, FeedbackNotAnswered, result.Feedback[1].Comment)
	assert.Equal(t, FeedbackNotAnswered, result.Feedback[2].Comment)
	assert.Equal(t, FeedbackNotAnswered, result.Feedback[3].Comment)
}

func TestScore_TrueFalseExactMatch(t *testing.T) {
	a := &Assessment{
		ID:           "quiz-tf",
		PassingScore: 50,
		Questions: []Question{
			{ID: "q1", Type: TypeTrueFalse, Points: 10, CorrectAnswer: "true"},
			{ID: "q2", Type: TypeTrueFalse, Points: 10, CorrectAnswer: "false"},
		},
	}

	result, err := Score(a, []Answer{
		{QuestionID: "q1", Value: "true"},
		{QuestionID: "q2", Value: "true"},
	})
	require.NoError(t, err)

	assert.Equal(t, 50, result.Score)
	assert.True(t, result.Passed)
	assert.Equal(t, FeedbackIncorrect, result.Feedback[1].Comment)
}

func TestScore_EssayFlatRate(t *testing.T) {
	a := &Assessment{
		ID:           "quiz-essay",
		PassingScore: 70,
		Questions: []Question{
			{ID: "q1", Type: TypeEssay, Points: 50},
			{ID: "q2", Type: TypeFileUpload, Points: 50},
		},
	}

	result, err := Score(a, []Answer{
		{QuestionID: "q1", Value: "my essay text"},
		{QuestionID: "q2", Value: "upload://submission.pdf"},
	})
	require.NoError(t, err)

	// Flat 80% of available points without content grading.
	assert.Equal(t, 80, result.Score)
	assert.True(t, result.Passed)
	assert.Equal(t, FeedbackSubmitted, result.Feedback[0].Comment)
	assert.Equal(t, FeedbackSubmitted, result.Feedback[1].Comment)
}

func TestScore_RoundsHalfUp(t *testing.T) {
	a := &Assessment{
		ID:           "quiz-round",
		PassingScore: 80,
		Questions: []Question{
			{ID: "q1", Type: TypeMultipleChoice, Points: 1, CorrectAnswer: "a"},
			{ID: "q2", Type: TypeMultipleChoice, Points: 1, CorrectAnswer: "b"},
			{ID: "q3", Type: TypeMultipleChoice, Points: 1, CorrectAnswer: "c"},
			{ID: "q4", Type: TypeMultipleChoice, Points: 1, CorrectAnswer: "d"},
			{ID: "q5", Type: TypeMultipleChoice, Points: 1, CorrectAnswer: "e"},
			{ID: "q6", Type: TypeMultipleChoice, Points: 1, CorrectAnswer: "f"},
			{ID: "q7", Type: TypeMultipleChoice, Points: 1, CorrectAnswer: "g"},
			{ID: "q8", Type: TypeMultipleChoice, Points: 1, CorrectAnswer: "h"},
		},
	}

	// 7/8 = 87.5 rounds half-up to 88.
	answers := []Answer{
		{QuestionID: "q1", Value: "a"},
		{QuestionID: "q2", Value: "b"},
		{QuestionID: "q3", Value: "c"},
		{QuestionID: "q4", Value: "d"},
		{QuestionID: "q5", Value: "e"},
		{QuestionID: "q6", Value: "f"},
		{QuestionID: "q7", Value: "g"},
	}

	result, err := Score(a, answers)
	require.NoError(t, err)
	assert.Equal(t, 88, result.Score)
}

func TestScore_NoQuestions(t *testing.T) {
	_, err := Score(&Assessment{ID: "empty"}, nil)
	assert.ErrorIs(t, err, ErrNoQuestions)

	_, err = Score(nil, nil)
	assert.ErrorIs(t, err, ErrNoQuestions)
}
