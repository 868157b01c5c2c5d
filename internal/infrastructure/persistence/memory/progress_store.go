package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/learnhub/enrollment-hub/internal/domain/progress"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ProgressStore implements progress.Store in memory.
type ProgressStore struct {
	mu   sync.RWMutex
	rows map[string]*progress.Record
}

// NewProgressStore creates an empty in-memory progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		rows: make(map[string]*progress.Record),
	}
}

func progressMapKey(k progress.Key) string {
	return fmt.Sprintf("%s:%s:%s:%s", k.UserID, k.CourseID, k.ModuleID, k.ContentID)
}

// Get returns the record for the exact key.
func (s *ProgressStore) Get(ctx context.Context, key progress.Key) (*progress.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[progressMapKey(key)]
	if !ok {
		return nil, progress.ErrRecordNotFound
	}
	return cloneRecord(r), nil
}

// Save upserts a record.
func (s *ProgressStore) Save(ctx context.Context, r *progress.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[progressMapKey(r.Key)] = cloneRecord(r)
	return nil
}

// ListForCourse returns all records for the pair in (module, content) order.
func (s *ProgressStore) ListForCourse(ctx context.Context, key shared.EnrollmentKey) ([]*progress.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*progress.Record
	for _, r := range s.rows {
		if r.Key.UserID == key.UserID && r.Key.CourseID == key.CourseID {
			out = append(out, cloneRecord(r))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.ModuleID != out[j].Key.ModuleID {
			return out[i].Key.ModuleID < out[j].Key.ModuleID
		}
		return out[i].Key.ContentID < out[j].Key.ContentID
	})
	return out, nil
}

// cloneRecord copies a record so callers never alias stored state.
func cloneRecord(r *progress.Record) *progress.Record {
	c := *r
	if r.CompletedAt != nil {
		completedAt := *r.CompletedAt
		c.CompletedAt = &completedAt
	}
	return &c
}
