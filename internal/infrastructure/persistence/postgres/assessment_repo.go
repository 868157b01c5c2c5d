package postgres

import (
	"context"
	"fmt"

	"github.com/learnhub/enrollment-hub/internal/domain/assessment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ScoreStore implements assessment.ScoreStore over PostgreSQL.
type ScoreStore struct {
	conn *Connection
}

// NewScoreStore creates a new ScoreStore.
func NewScoreStore(conn *Connection) *ScoreStore {
	return &ScoreStore{conn: conn}
}

// Append adds a new attempt record. Rows are never updated or deleted.
func (s *ScoreStore) Append(ctx context.Context, score *assessment.AssessmentScore) error {
	query := `
		INSERT INTO assessment_scores (
			user_id, course_id, assessment_id,
			score, max_score, passed,
			completion_time_seconds, attempt, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.conn.Exec(ctx, query,
		score.UserID.String(), score.CourseID.String(), score.AssessmentID.String(),
		score.Score, score.MaxScore, score.Passed,
		score.CompletionTimeSeconds, score.Attempt, score.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to append assessment score: %w", err)
	}
	return nil
}

// CountAttempts returns the number of recorded attempts for the pair.
func (s *ScoreStore) CountAttempts(ctx context.Context, userID shared.UserID, assessmentID shared.AssessmentID) (int, error) {
	var count int
	err := s.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessment_scores WHERE user_id = $1 AND assessment_id = $2`,
		userID.String(), assessmentID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to count attempts: %w", err)
	}
	return count, nil
}

// ListAttempts returns all attempts for the pair, oldest first.
func (s *ScoreStore) ListAttempts(ctx context.Context, userID shared.UserID, assessmentID shared.AssessmentID) ([]*assessment.AssessmentScore, error) {
	query := `
		SELECT user_id, course_id, assessment_id,
		       score, max_score, passed,
		       completion_time_seconds, attempt, submitted_at
		FROM assessment_scores
		WHERE user_id = $1 AND assessment_id = $2
		ORDER BY attempt ASC
	`

	rows, err := s.conn.Query(ctx, query, userID.String(), assessmentID.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list attempts: %w", err)
	}
	defer rows.Close()

	var out []*assessment.AssessmentScore
	for rows.Next() {
		var (
			score        assessment.AssessmentScore
			uid, cid, id string
		)
		err := rows.Scan(
			&uid, &cid, &id,
			&score.Score, &score.MaxScore, &score.Passed,
			&score.CompletionTimeSeconds, &score.Attempt, &score.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan attempt: %w", err)
		}
		score.UserID = shared.UserID(uid)
		score.CourseID = shared.CourseID(cid)
		score.AssessmentID = shared.AssessmentID(id)
		out = append(out, &score)
	}
	return out, rows.Err()
}
