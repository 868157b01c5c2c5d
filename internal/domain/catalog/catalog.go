// Package catalog defines the read-only interfaces this core consumes from
// the external Course Catalog: course/module/content structure and
// assessment definitions. The catalog owns these; nothing here writes them.
package catalog

import (
	"context"

	"github.com/learnhub/enrollment-hub/internal/domain/assessment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// Catalog errors.
var (
	ErrCourseNotFound = shared.NewDomainError("catalog", "Find", shared.ErrNotFound, "course not found in catalog")
)

// ContentItem is one addressable piece of course content.
type ContentItem struct {
	ModuleID  shared.ModuleID
	ContentID shared.ContentID
	Title     string

	// DurationSeconds is the nominal content duration. Informational only:
	// overall progress is deliberately unweighted.
	DurationSeconds int64
}

// CourseStructure is the content layout of one course.
type CourseStructure struct {
	CourseID shared.CourseID
	Title    string
	Items    []ContentItem
}

// ContentCount returns the number of content items in the course.
func (c *CourseStructure) ContentCount() int {
	return len(c.Items)
}

// Reader is the consumed catalog surface.
type Reader interface {
	// GetCourseStructure returns the course layout, or ErrCourseNotFound.
	GetCourseStructure(ctx context.Context, courseID shared.CourseID) (*CourseStructure, error)

	// GetAssessment returns an assessment definition, or
	// assessment.ErrAssessmentNotFound.
	GetAssessment(ctx context.Context, id shared.AssessmentID) (*assessment.Assessment, error)
}
