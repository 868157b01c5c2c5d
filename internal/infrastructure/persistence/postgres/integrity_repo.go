package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/learnhub/enrollment-hub/internal/domain/integrity"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// IntegrityRepository implements integrity.Repository over PostgreSQL.
// Score samples are stored as a JSONB document: the tracker always reads
// and rewrites the profile whole, so there is nothing to query inside it.
type IntegrityRepository struct {
	conn *Connection
}

// NewIntegrityRepository creates a new IntegrityRepository.
func NewIntegrityRepository(conn *Connection) *IntegrityRepository {
	return &IntegrityRepository{conn: conn}
}

// Get returns the profile for the pair.
func (r *IntegrityRepository) Get(ctx context.Context, key shared.EnrollmentKey) (*integrity.Profile, error) {
	query := `
		SELECT user_id, course_id,
		       total_time_spent_seconds, chapters_completed, total_chapters,
		       fast_forward_count, skip_count,
		       assessment_scores, avg_time_per_chapter, flags, pattern,
		       created_at, updated_at
		FROM integrity_profiles
		WHERE user_id = $1 AND course_id = $2
	`

	var (
		p          integrity.Profile
		userID     string
		courseID   string
		samplesRaw []byte
		flags      []string
		pattern    string
	)

	err := r.conn.QueryRow(ctx, query, key.UserID.String(), key.CourseID.String()).Scan(
		&userID, &courseID,
		&p.TotalTimeSpentSeconds, &p.ChaptersCompleted, &p.TotalChapters,
		&p.FastForwardCount, &p.SkipCount,
		&samplesRaw, &p.AverageTimePerChapterSeconds, &flags, &pattern,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, integrity.ErrProfileNotFound
		}
		return nil, fmt.Errorf("postgres: failed to get integrity profile: %w", err)
	}

	p.UserID = shared.UserID(userID)
	p.CourseID = shared.CourseID(courseID)
	p.Pattern = integrity.Pattern(pattern)
	p.Flags = make([]integrity.Flag, len(flags))
	for i, f := range flags {
		p.Flags[i] = integrity.Flag(f)
	}
	if err := json.Unmarshal(samplesRaw, &p.AssessmentScores); err != nil {
		return nil, fmt.Errorf("postgres: failed to decode score samples: %w", err)
	}
	return &p, nil
}

// Save upserts a profile.
func (r *IntegrityRepository) Save(ctx context.Context, p *integrity.Profile) error {
	samplesRaw, err := json.Marshal(p.AssessmentScores)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode score samples: %w", err)
	}

	query := `
		INSERT INTO integrity_profiles (
			user_id, course_id,
			total_time_spent_seconds, chapters_completed, total_chapters,
			fast_forward_count, skip_count,
			assessment_scores, avg_time_per_chapter, flags, pattern,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, course_id) DO UPDATE SET
			total_time_spent_seconds = EXCLUDED.total_time_spent_seconds,
			chapters_completed = EXCLUDED.chapters_completed,
			total_chapters = EXCLUDED.total_chapters,
			fast_forward_count = EXCLUDED.fast_forward_count,
			skip_count = EXCLUDED.skip_count,
			assessment_scores = EXCLUDED.assessment_scores,
			avg_time_per_chapter = EXCLUDED.avg_time_per_chapter,
			flags = EXCLUDED.flags,
			pattern = EXCLUDED.pattern,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.conn.Exec(ctx, query,
		p.UserID.String(), p.CourseID.String(),
		p.TotalTimeSpentSeconds, p.ChaptersCompleted, p.TotalChapters,
		p.FastForwardCount, p.SkipCount,
		samplesRaw, p.AverageTimePerChapterSeconds, p.FlagStrings(), p.Pattern.String(),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save integrity profile: %w", err)
	}
	return nil
}
