package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/progress"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ProgressStore implements progress.Store over PostgreSQL.
type ProgressStore struct {
	conn *Connection
}

// NewProgressStore creates a new ProgressStore.
func NewProgressStore(conn *Connection) *ProgressStore {
	return &ProgressStore{conn: conn}
}

const progressColumns = `
	user_id, course_id, module_id, content_id,
	status, progress, time_spent_seconds,
	last_accessed_at, completed_at, created_at, updated_at
`

// Get returns the record for the exact key.
func (s *ProgressStore) Get(ctx context.Context, key progress.Key) (*progress.Record, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM progress_records
		WHERE user_id = $1 AND course_id = $2 AND module_id = $3 AND content_id = $4
	`

	r, err := scanProgressRecord(s.conn.QueryRow(ctx, query,
		key.UserID.String(), key.CourseID.String(),
		key.ModuleID.String(), key.ContentID.String(),
	))
	if err != nil {
		if IsNoRows(err) {
			return nil, progress.ErrRecordNotFound
		}
		return nil, fmt.Errorf("postgres: failed to get progress record: %w", err)
	}
	return r, nil
}

// Save upserts a record. The entity already folded the interaction in
// (sticky completion, accumulated time), so the upsert writes the full
// current state.
func (s *ProgressStore) Save(ctx context.Context, r *progress.Record) error {
	query := `
		INSERT INTO progress_records (` + progressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, course_id, module_id, content_id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			time_spent_seconds = EXCLUDED.time_spent_seconds,
			last_accessed_at = EXCLUDED.last_accessed_at,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.conn.Exec(ctx, query,
		r.Key.UserID.String(), r.Key.CourseID.String(),
		r.Key.ModuleID.String(), r.Key.ContentID.String(),
		r.Status.String(), r.Progress.Int(), r.TimeSpentSeconds,
		r.LastAccessedAt, r.CompletedAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save progress record: %w", err)
	}
	return nil
}

// ListForCourse returns all records for the pair in (module, content) order.
func (s *ProgressStore) ListForCourse(ctx context.Context, key shared.EnrollmentKey) ([]*progress.Record, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM progress_records
		WHERE user_id = $1 AND course_id = $2
		ORDER BY module_id, content_id
	`

	rows, err := s.conn.Query(ctx, query, key.UserID.String(), key.CourseID.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list progress records: %w", err)
	}
	defer rows.Close()

	var out []*progress.Record
	for rows.Next() {
		r, err := scanProgressRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan progress record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanProgressRecord(row rowScanner) (*progress.Record, error) {
	var (
		r           progress.Record
		userID      string
		courseID    string
		moduleID    string
		contentID   string
		status      string
		progressVal int
		completedAt *time.Time
	)

	err := row.Scan(
		&userID, &courseID, &moduleID, &contentID,
		&status, &progressVal, &r.TimeSpentSeconds,
		&r.LastAccessedAt, &completedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Key = progress.Key{
		UserID:    shared.UserID(userID),
		CourseID:  shared.CourseID(courseID),
		ModuleID:  shared.ModuleID(moduleID),
		ContentID: shared.ContentID(contentID),
	}
	r.Status = progress.Status(status)
	r.Progress = shared.Percent(progressVal)
	r.CompletedAt = completedAt
	return &r, nil
}
