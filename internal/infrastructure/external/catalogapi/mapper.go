// Package catalogapi implements the Course Catalog API client.
package catalogapi

import (
	"fmt"

	"github.com/learnhub/enrollment-hub/internal/domain/assessment"
	"github.com/learnhub/enrollment-hub/internal/domain/catalog"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// Mapper translates catalog DTOs into domain types. The catalog is an
// external system: anything that fails validation here is rejected
// rather than let a malformed definition reach the scorer.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// CourseStructureFromDTO maps and flattens a course layout. Module
// nesting is a catalog presentation detail; the domain addresses content
// by (module, content) pairs.
func (m *Mapper) CourseStructureFromDTO(dto *CourseStructureDTO) (*catalog.CourseStructure, error) {
	courseID, err := shared.NewCourseID(dto.ID)
	if err != nil {
		return nil, fmt.Errorf("map course: %w", err)
	}

	structure := &catalog.CourseStructure{
		CourseID: courseID,
		Title:    dto.Title,
	}

	for _, mod := range dto.Modules {
		if mod.ID == "" {
			return nil, fmt.Errorf("map course %s: module with empty id", dto.ID)
		}
		for _, item := range mod.Items {
			if item.ID == "" {
				return nil, fmt.Errorf("map course %s: content with empty id in module %s", dto.ID, mod.ID)
			}
			structure.Items = append(structure.Items, catalog.ContentItem{
				ModuleID:        shared.ModuleID(mod.ID),
				ContentID:       shared.ContentID(item.ID),
				Title:           item.Title,
				DurationSeconds: item.DurationSeconds,
			})
		}
	}

	return structure, nil
}

// AssessmentFromDTO maps an assessment definition.
func (m *Mapper) AssessmentFromDTO(dto *AssessmentDTO) (*assessment.Assessment, error) {
	courseID, err := shared.NewCourseID(dto.CourseID)
	if err != nil {
		return nil, fmt.Errorf("map assessment %s: %w", dto.ID, err)
	}
	if dto.ID == "" {
		return nil, fmt.Errorf("map assessment: empty id")
	}
	if dto.PassingScore < 0 || dto.PassingScore > 100 {
		return nil, fmt.Errorf("map assessment %s: passing score %d out of range", dto.ID, dto.PassingScore)
	}

	def := &assessment.Assessment{
		ID:           shared.AssessmentID(dto.ID),
		CourseID:     courseID,
		Title:        dto.Title,
		PassingScore: dto.PassingScore,
	}

	for _, q := range dto.Questions {
		qType := assessment.QuestionType(q.Type)
		if !qType.IsValid() {
			return nil, fmt.Errorf("map assessment %s: unknown question type %q", dto.ID, q.Type)
		}
		if q.Points < 0 {
			return nil, fmt.Errorf("map assessment %s: question %s has negative points", dto.ID, q.ID)
		}
		def.Questions = append(def.Questions, assessment.Question{
			ID:            q.ID,
			Type:          qType,
			Points:        q.Points,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	return def, nil
}
