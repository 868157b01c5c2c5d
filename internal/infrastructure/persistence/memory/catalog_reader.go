package memory

import (
	"context"
	"sync"

	"github.com/learnhub/enrollment-hub/internal/domain/assessment"
	"github.com/learnhub/enrollment-hub/internal/domain/catalog"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// CatalogReader implements catalog.Reader over fixed in-memory definitions.
// Used by tests and local development instead of the HTTP catalog client.
type CatalogReader struct {
	mu          sync.RWMutex
	courses     map[shared.CourseID]*catalog.CourseStructure
	assessments map[shared.AssessmentID]*assessment.Assessment
}

// NewCatalogReader creates an empty catalog.
func NewCatalogReader() *CatalogReader {
	return &CatalogReader{
		courses:     make(map[shared.CourseID]*catalog.CourseStructure),
		assessments: make(map[shared.AssessmentID]*assessment.Assessment),
	}
}

// NewCatalogReaderWithFixtures creates a catalog preloaded with a small
// demo course set, enough to exercise the full lifecycle locally without a
// catalog service.
func NewCatalogReaderWithFixtures() *CatalogReader {
	c := NewCatalogReader()

	c.AddCourse(&catalog.CourseStructure{
		CourseID: "go-101",
		Title:    "Go Fundamentals",
		Items: []catalog.ContentItem{
			{ModuleID: "m1", ContentID: "c1", Title: "Hello, World", DurationSeconds: 300},
			{ModuleID: "m1", ContentID: "c2", Title: "Types and Values", DurationSeconds: 600},
			{ModuleID: "m2", ContentID: "c3", Title: "Goroutines", DurationSeconds: 900},
		},
	})
	c.AddCourse(&catalog.CourseStructure{
		CourseID: "sql-201",
		Title:    "Intermediate SQL",
		Items: []catalog.ContentItem{
			{ModuleID: "m1", ContentID: "c1", Title: "Joins", DurationSeconds: 600},
			{ModuleID: "m1", ContentID: "c2", Title: "Window Functions", DurationSeconds: 900},
		},
	})

	c.AddAssessment(&assessment.Assessment{
		ID:           "go-101-final",
		CourseID:     "go-101",
		Title:        "Go Fundamentals Final",
		PassingScore: 70,
		Questions: []assessment.Question{
			{ID: "q1", Type: assessment.TypeMultipleChoice, Points: 25, CorrectAnswer: "b"},
			{ID: "q2", Type: assessment.TypeMultipleChoice, Points: 25, CorrectAnswer: "a"},
			{ID: "q3", Type: assessment.TypeTrueFalse, Points: 25, CorrectAnswer: "true"},
			{ID: "q4", Type: assessment.TypeEssay, Points: 25},
		},
	})

	return c
}

// AddCourse registers a course structure.
func (c *CatalogReader) AddCourse(course *catalog.CourseStructure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.courses[course.CourseID] = course
}

// AddAssessment registers an assessment definition.
func (c *CatalogReader) AddAssessment(a *assessment.Assessment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assessments[a.ID] = a
}

// GetCourseStructure returns the course layout.
func (c *CatalogReader) GetCourseStructure(ctx context.Context, courseID shared.CourseID) (*catalog.CourseStructure, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	course, ok := c.courses[courseID]
	if !ok {
		return nil, catalog.ErrCourseNotFound
	}
	return course, nil
}

// GetAssessment returns an assessment definition.
func (c *CatalogReader) GetAssessment(ctx context.Context, id shared.AssessmentID) (*assessment.Assessment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.assessments[id]
	if !ok {
		return nil, assessment.ErrAssessmentNotFound
	}
	return a, nil
}
