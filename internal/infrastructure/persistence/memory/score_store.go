package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/learnhub/enrollment-hub/internal/domain/assessment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ScoreStore implements assessment.ScoreStore in memory. The history is
// append-only: attempts are never mutated or discarded.
type ScoreStore struct {
	mu   sync.RWMutex
	rows map[string][]*assessment.AssessmentScore
}

// NewScoreStore creates an empty in-memory score store.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		rows: make(map[string][]*assessment.AssessmentScore),
	}
}

func scoreMapKey(userID shared.UserID, assessmentID shared.AssessmentID) string {
	return fmt.Sprintf("%s:%s", userID, assessmentID)
}

// Append adds a new attempt record.
func (s *ScoreStore) Append(ctx context.Context, score *assessment.AssessmentScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scoreMapKey(score.UserID, score.AssessmentID)
	copied := *score
	s.rows[key] = append(s.rows[key], &copied)
	return nil
}

// CountAttempts returns the number of recorded attempts for the pair.
func (s *ScoreStore) CountAttempts(ctx context.Context, userID shared.UserID, assessmentID shared.AssessmentID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rows[scoreMapKey(userID, assessmentID)]), nil
}

// ListAttempts returns all attempts for the pair, oldest first.
func (s *ScoreStore) ListAttempts(ctx context.Context, userID shared.UserID, assessmentID shared.AssessmentID) ([]*assessment.AssessmentScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.rows[scoreMapKey(userID, assessmentID)]
	out := make([]*assessment.AssessmentScore, len(stored))
	for i, sc := range stored {
		copied := *sc
		out[i] = &copied
	}
	return out, nil
}
