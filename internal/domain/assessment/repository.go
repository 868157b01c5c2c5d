package assessment

import (
	"context"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ScoreStore persists the append-only score history.
type ScoreStore interface {
	// Append adds a new attempt record. Never overwrites prior attempts.
	Append(ctx context.Context, s *AssessmentScore) error

	// CountAttempts returns the number of recorded attempts for the pair.
	CountAttempts(ctx context.Context, userID shared.UserID, assessmentID shared.AssessmentID) (int, error)

	// ListAttempts returns all attempts for the pair, oldest first.
	ListAttempts(ctx context.Context, userID shared.UserID, assessmentID shared.AssessmentID) ([]*AssessmentScore, error)
}

// DefinitionSource provides read-only assessment definitions. Backed by the
// external course catalog; the in-memory implementation serves tests.
type DefinitionSource interface {
	// GetAssessment returns the definition, or ErrAssessmentNotFound.
	GetAssessment(ctx context.Context, id shared.AssessmentID) (*Assessment, error)
}
