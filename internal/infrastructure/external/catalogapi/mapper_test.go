package catalogapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/domain/assessment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

func TestMapper_CourseStructureFromDTO(t *testing.T) {
	m := NewMapper()

	dto := &CourseStructureDTO{
		ID:    "go-101",
		Title: "Go Fundamentals",
		Modules: []ModuleDTO{
			{
				ID:    "m1",
				Title: "Basics",
				Items: []ContentItemDTO{
					{ID: "c1", Title: "Hello", DurationSeconds: 300},
					{ID: "c2", Title: "Types", DurationSeconds: 600},
				},
			},
			{
				ID:    "m2",
				Title: "Concurrency",
				Items: []ContentItemDTO{
					{ID: "c3", Title: "Goroutines", DurationSeconds: 900},
				},
			},
		},
	}

	structure, err := m.CourseStructureFromDTO(dto)
	require.NoError(t, err)

	assert.Equal(t, shared.CourseID("go-101"), structure.CourseID)
	assert.Equal(t, "Go Fundamentals", structure.Title)
	require.Len(t, structure.Items, 3, "module nesting is flattened")
	assert.Equal(t, shared.ModuleID("m1"), structure.Items[0].ModuleID)
	assert.Equal(t, shared.ContentID("c3"), structure.Items[2].ContentID)
}

func TestMapper_CourseStructureFromDTO_Invalid(t *testing.T) {
	m := NewMapper()

	tests := []struct {
		name string
		dto  *CourseStructureDTO
	}{
		{"empty course id", &CourseStructureDTO{ID: ""}},
		{"empty module id", &CourseStructureDTO{
			ID:      "go-101",
			Modules: []ModuleDTO{{ID: ""}},
		}},
		{"empty content id", &CourseStructureDTO{
			ID: "go-101",
			Modules: []ModuleDTO{
				{ID: "m1", Items: []ContentItemDTO{{ID: ""}}},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CourseStructureFromDTO(tt.dto)
			assert.Error(t, err)
		})
	}
}

func TestMapper_AssessmentFromDTO(t *testing.T) {
	m := NewMapper()

	dto := &AssessmentDTO{
		ID:           "quiz-1",
		CourseID:     "go-101",
		Title:        "Final Quiz",
		PassingScore: 70,
		Questions: []QuestionDTO{
			{ID: "q1", Type: "multiple_choice", Points: 25, CorrectAnswer: "b"},
			{ID: "q2", Type: "true_false", Points: 25, CorrectAnswer: "true"},
			{ID: "q3", Type: "essay", Points: 50},
		},
	}

	def, err := m.AssessmentFromDTO(dto)
	require.NoError(t, err)

	assert.Equal(t, shared.AssessmentID("quiz-1"), def.ID)
	assert.Equal(t, 70, def.PassingScore)
	require.Len(t, def.Questions, 3)
	assert.Equal(t, assessment.TypeMultipleChoice, def.Questions[0].Type)
	assert.Equal(t, 50, def.Questions[2].Points)
}

func TestMapper_AssessmentFromDTO_Invalid(t *testing.T) {
	m := NewMapper()

	tests := []struct {
		name string
		dto  *AssessmentDTO
	}{
		{"empty assessment id", &AssessmentDTO{ID: "", CourseID: "go-101"}},
		{"empty course id", &AssessmentDTO{ID: "quiz-1", CourseID: ""}},
		{"passing score out of range", &AssessmentDTO{
			ID: "quiz-1", CourseID: "go-101", PassingScore: 101,
		}},
		{"unknown question type", &AssessmentDTO{
			ID: "quiz-1", CourseID: "go-101", PassingScore: 70,
			Questions: []QuestionDTO{{ID: "q1", Type: "matching", Points: 10}},
		}},
		{"negative points", &AssessmentDTO{
			ID: "quiz-1", CourseID: "go-101", PassingScore: 70,
			Questions: []QuestionDTO{{ID: "q1", Type: "essay", Points: -5}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.AssessmentFromDTO(tt.dto)
			assert.Error(t, err)
		})
	}
}
