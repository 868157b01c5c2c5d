package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/enrollment"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// EnrollmentRepository implements enrollment.Repository over PostgreSQL.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

const enrollmentColumns = `
	user_id, course_id, status, progress,
	enrolled_at, last_accessed_at, completed_at,
	created_at, updated_at
`

// Create persists a new enrollment. The primary key on (user_id, course_id)
// rejects duplicates; the violation maps to ErrAlreadyEnrolled.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	query := `
		INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		e.UserID.String(), e.CourseID.String(), e.Status.String(), e.Progress.Int(),
		e.EnrolledAt, e.LastAccessedAt, e.CompletedAt,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return enrollment.ErrAlreadyEnrolled
		}
		return fmt.Errorf("postgres: failed to create enrollment: %w", err)
	}
	return nil
}

// Get returns the enrollment for the pair, regardless of status.
func (r *EnrollmentRepository) Get(ctx context.Context, key shared.EnrollmentKey) (*enrollment.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE user_id = $1 AND course_id = $2
	`

	e, err := scanEnrollment(r.conn.QueryRow(ctx, query, key.UserID.String(), key.CourseID.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, enrollment.ErrNotEnrolled
		}
		return nil, fmt.Errorf("postgres: failed to get enrollment: %w", err)
	}
	return e, nil
}

// Update persists changes to an existing enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	query := `
		UPDATE enrollments
		SET status = $3, progress = $4, enrolled_at = $5,
		    last_accessed_at = $6, completed_at = $7, updated_at = $8
		WHERE user_id = $1 AND course_id = $2
	`

	tag, err := r.conn.Exec(ctx, query,
		e.UserID.String(), e.CourseID.String(),
		e.Status.String(), e.Progress.Int(), e.EnrolledAt,
		e.LastAccessedAt, e.CompletedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to update enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return enrollment.ErrNotEnrolled
	}
	return nil
}

// CompleteIfActive atomically transitions active → completed. The status
// predicate in the UPDATE is the compare-and-set: under concurrent callers
// exactly one statement matches a row, so exactly one caller sees true.
func (r *EnrollmentRepository) CompleteIfActive(ctx context.Context, key shared.EnrollmentKey, completedAt time.Time) (bool, error) {
	query := `
		UPDATE enrollments
		SET status = 'completed', progress = 100,
		    completed_at = $3, updated_at = $3
		WHERE user_id = $1 AND course_id = $2 AND status = 'active'
	`

	tag, err := r.conn.Exec(ctx, query, key.UserID.String(), key.CourseID.String(), completedAt)
	if err != nil {
		return false, fmt.Errorf("postgres: failed to complete enrollment: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Nothing matched: either the pair is unknown or already past active.
	var exists bool
	err = r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`,
		key.UserID.String(), key.CourseID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: failed to check enrollment: %w", err)
	}
	if !exists {
		return false, enrollment.ErrNotEnrolled
	}
	return false, nil
}

// ListByUser returns all enrollments of a learner, newest first.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*enrollment.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE user_id = $1
		ORDER BY enrolled_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var out []*enrollment.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan enrollment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListStale returns active enrollments untouched since the cutoff, oldest
// first. Serves the worker's expiry job.
func (r *EnrollmentRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*enrollment.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE status = 'active' AND last_accessed_at < $1
		ORDER BY last_accessed_at ASC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list stale enrollments: %w", err)
	}
	defer rows.Close()

	var out []*enrollment.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan enrollment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByStatus returns per-status enrollment counts for a learner.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context, userID shared.UserID) (map[enrollment.Status]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM enrollments
		WHERE user_id = $1
		GROUP BY status
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to count enrollments: %w", err)
	}
	defer rows.Close()

	counts := make(map[enrollment.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan count: %w", err)
		}
		counts[enrollment.Status(status)] = count
	}
	return counts, rows.Err()
}

// ListActiveUsers returns distinct learners with at least one active
// enrollment. Serves the worker's usage summary refresh job.
func (r *EnrollmentRepository) ListActiveUsers(ctx context.Context, limit int) ([]shared.UserID, error) {
	query := `
		SELECT DISTINCT user_id
		FROM enrollments
		WHERE status = 'active'
		ORDER BY user_id
		LIMIT $1
	`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list active users: %w", err)
	}
	defer rows.Close()

	var out []shared.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan user id: %w", err)
		}
		out = append(out, shared.UserID(id))
	}
	return out, rows.Err()
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEnrollment(row rowScanner) (*enrollment.Enrollment, error) {
	var (
		e           enrollment.Enrollment
		userID      string
		courseID    string
		status      string
		progressVal int
		completedAt *time.Time
	)

	err := row.Scan(
		&userID, &courseID, &status, &progressVal,
		&e.EnrolledAt, &e.LastAccessedAt, &completedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.UserID = shared.UserID(userID)
	e.CourseID = shared.CourseID(courseID)
	e.Status = enrollment.Status(status)
	e.Progress = shared.Percent(progressVal)
	e.CompletedAt = completedAt
	return &e, nil
}
