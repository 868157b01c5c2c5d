// Package catalogapi implements the Course Catalog API client.
package catalogapi

import "fmt"

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// APIResponse is the catalog's standard response wrapper.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta carries pagination information.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// APIErrorDTO is the catalog's error body.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	return fmt.Sprintf("catalog api error %s: %s", e.Code, e.Message)
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE STRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

// CourseStructureDTO is the catalog's course layout representation.
// The catalog nests content under modules; the domain flattens it.
type CourseStructureDTO struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Modules []ModuleDTO `json:"modules"`
}

// ModuleDTO is one module within a course.
type ModuleDTO struct {
	ID    string           `json:"id"`
	Title string           `json:"title"`
	Items []ContentItemDTO `json:"items"`
}

// ContentItemDTO is one addressable piece of content.
type ContentItemDTO struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// CourseSummaryDTO is the list-endpoint shape, without the content tree.
type CourseSummaryDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ModuleCount int    `json:"module_count"`
	Published   bool   `json:"published"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ASSESSMENTS
// ══════════════════════════════════════════════════════════════════════════════

// AssessmentDTO is the catalog's assessment definition representation.
type AssessmentDTO struct {
	ID           string        `json:"id"`
	CourseID     string        `json:"course_id"`
	Title        string        `json:"title"`
	PassingScore int           `json:"passing_score"`
	Questions    []QuestionDTO `json:"questions"`
}

// QuestionDTO is one question within an assessment.
type QuestionDTO struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Points        int    `json:"points"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}
