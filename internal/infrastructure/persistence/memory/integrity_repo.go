package memory

import (
	"context"
	"sync"

	"github.com/learnhub/enrollment-hub/internal/domain/integrity"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// IntegrityRepository implements integrity.Repository in memory. Its lock is
// independent of the enrollment repository's, so the tracker's write path
// never blocks the enrollment manager's.
type IntegrityRepository struct {
	mu   sync.RWMutex
	rows map[string]*integrity.Profile
}

// NewIntegrityRepository creates an empty in-memory integrity repository.
func NewIntegrityRepository() *IntegrityRepository {
	return &IntegrityRepository{
		rows: make(map[string]*integrity.Profile),
	}
}

// Get returns the profile for the pair.
func (r *IntegrityRepository) Get(ctx context.Context, key shared.EnrollmentKey) (*integrity.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.rows[key.String()]
	if !ok {
		return nil, integrity.ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

// Save upserts a profile.
func (r *IntegrityRepository) Save(ctx context.Context, p *integrity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows[p.Key().String()] = cloneProfile(p)
	return nil
}

// cloneProfile copies a profile including its slices.
func cloneProfile(p *integrity.Profile) *integrity.Profile {
	c := *p
	c.AssessmentScores = append([]integrity.ScoreSample(nil), p.AssessmentScores...)
	c.Flags = append([]integrity.Flag(nil), p.Flags...)
	return &c
}
