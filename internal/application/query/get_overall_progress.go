// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/progress"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET OVERALL PROGRESS QUERY
// Returns the course-level progress for a (user, course) pair together with
// the per-item breakdown. The overall value is the same unweighted mean the
// write path uses for the completion decision, recomputed live from the
// records - there is no second bookkeeping to drift.
// ══════════════════════════════════════════════════════════════════════════════

// GetOverallProgressQuery contains the query parameters.
type GetOverallProgressQuery struct {
	// UserID is the stable learner identifier.
	UserID string

	// CourseID is the course to report on.
	CourseID string

	// IncludeItems includes the per-content-item breakdown.
	IncludeItems bool
}

// Validate validates the query parameters.
func (q *GetOverallProgressQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_overall_progress: user_id is required")
	}
	if q.CourseID == "" {
		return errors.New("get_overall_progress: course_id is required")
	}
	return nil
}

// ContentProgressDTO is one content item in the breakdown.
type ContentProgressDTO struct {
	ModuleID         string     `json:"module_id"`
	ContentID        string     `json:"content_id"`
	Status           string     `json:"status"`
	Progress         int        `json:"progress"`
	TimeSpentSeconds int64      `json:"time_spent_seconds"`
	LastAccessedAt   time.Time  `json:"last_accessed_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// OverallProgressDTO is the query result.
type OverallProgressDTO struct {
	UserID           string     `json:"user_id"`
	CourseID         string     `json:"course_id"`
	EnrollmentStatus string     `json:"enrollment_status"`
	OverallProgress  int        `json:"overall_progress"`
	ItemsRecorded    int        `json:"items_recorded"`
	ItemsCompleted   int        `json:"items_completed"`
	TimeSpentSeconds int64      `json:"time_spent_seconds"`
	EnrolledAt       time.Time  `json:"enrolled_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	Items []ContentProgressDTO `json:"items,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetOverallProgressHandler handles the GetOverallProgressQuery.
type GetOverallProgressHandler struct {
	enrollmentRepo enrollment.Repository
	progressStore  progress.Store
}

// NewGetOverallProgressHandler creates a new handler.
func NewGetOverallProgressHandler(
	enrollmentRepo enrollment.Repository,
	progressStore progress.Store,
) *GetOverallProgressHandler {
	return &GetOverallProgressHandler{
		enrollmentRepo: enrollmentRepo,
		progressStore:  progressStore,
	}
}

// Handle executes the query.
func (h *GetOverallProgressHandler) Handle(ctx context.Context, q GetOverallProgressQuery) (*OverallProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	key, err := queryKey(q.UserID, q.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get_overall_progress: %w", err)
	}

	e, err := h.enrollmentRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, enrollment.ErrNotEnrolled) {
			return nil, enrollment.ErrNotEnrolled
		}
		return nil, fmt.Errorf("get_overall_progress: failed to load enrollment: %w", err)
	}

	records, err := h.progressStore.ListForCourse(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get_overall_progress: failed to list records: %w", err)
	}

	dto := &OverallProgressDTO{
		UserID:           key.UserID.String(),
		CourseID:         key.CourseID.String(),
		EnrollmentStatus: e.Status.String(),
		OverallProgress:  progress.Overall(records).Int(),
		ItemsRecorded:    len(records),
		ItemsCompleted:   progress.CountCompleted(records),
		TimeSpentSeconds: progress.TotalTimeSpentSeconds(records),
		EnrolledAt:       e.EnrolledAt,
		CompletedAt:      e.CompletedAt,
	}

	if q.IncludeItems {
		dto.Items = make([]ContentProgressDTO, 0, len(records))
		for _, r := range records {
			dto.Items = append(dto.Items, ContentProgressDTO{
				ModuleID:         r.Key.ModuleID.String(),
				ContentID:        r.Key.ContentID.String(),
				Status:           r.Status.String(),
				Progress:         r.Progress.Int(),
				TimeSpentSeconds: r.TimeSpentSeconds,
				LastAccessedAt:   r.LastAccessedAt,
				CompletedAt:      r.CompletedAt,
			})
		}
	}

	return dto, nil
}

// queryKey validates the raw IDs into a typed key.
func queryKey(rawUserID, rawCourseID string) (shared.EnrollmentKey, error) {
	userID, err := shared.NewUserID(rawUserID)
	if err != nil {
		return shared.EnrollmentKey{}, err
	}
	courseID, err := shared.NewCourseID(rawCourseID)
	if err != nil {
		return shared.EnrollmentKey{}, err
	}
	return shared.NewEnrollmentKey(userID, courseID)
}
