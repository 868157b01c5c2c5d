package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/integrity"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEARNING PATTERN QUERY
// Exposes the published integrity classification for a (user, course) pair.
// Only the classification and its flags leave the tracker; the raw
// behavioral counters stay private to it. A pair with no profile reads as
// normal - absence of evidence is not an anomaly.
// ══════════════════════════════════════════════════════════════════════════════

// GetLearningPatternQuery contains the query parameters.
type GetLearningPatternQuery struct {
	// UserID is the stable learner identifier.
	UserID string

	// CourseID is the course to report on.
	CourseID string
}

// Validate validates the query parameters.
func (q *GetLearningPatternQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_learning_pattern: user_id is required")
	}
	if q.CourseID == "" {
		return errors.New("get_learning_pattern: course_id is required")
	}
	return nil
}

// LearningPatternDTO is the query result.
type LearningPatternDTO struct {
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	Pattern   string    `json:"pattern"`
	Flags     []string  `json:"flags"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetLearningPatternHandler handles the GetLearningPatternQuery.
type GetLearningPatternHandler struct {
	integrityRepo integrity.Repository
}

// NewGetLearningPatternHandler creates a new handler.
func NewGetLearningPatternHandler(integrityRepo integrity.Repository) *GetLearningPatternHandler {
	return &GetLearningPatternHandler{integrityRepo: integrityRepo}
}

// Handle executes the query.
func (h *GetLearningPatternHandler) Handle(ctx context.Context, q GetLearningPatternQuery) (*LearningPatternDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	key, err := queryKey(q.UserID, q.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get_learning_pattern: %w", err)
	}

	profile, err := h.integrityRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, integrity.ErrProfileNotFound) {
			return &LearningPatternDTO{
				UserID:   key.UserID.String(),
				CourseID: key.CourseID.String(),
				Pattern:  integrity.PatternNormal.String(),
				Flags:    []string{},
			}, nil
		}
		return nil, fmt.Errorf("get_learning_pattern: failed to load profile: %w", err)
	}

	return &LearningPatternDTO{
		UserID:    key.UserID.String(),
		CourseID:  key.CourseID.String(),
		Pattern:   profile.Pattern.String(),
		Flags:     profile.FlagStrings(),
		UpdatedAt: profile.UpdatedAt,
	}, nil
}
