package progress

import (
	"context"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// Store defines persistence for progress records. The enrollment manager is
// the only writer; other components read records to compute aggregates.
// Records are never deleted.
type Store interface {
	// Get returns the record for the exact (user, course, module, content)
	// key. Returns ErrRecordNotFound when no interaction was recorded yet.
	Get(ctx context.Context, key Key) (*Record, error)

	// Save upserts a record. Implementations must be safe under the
	// per-(user, course) serialization discipline of the callers.
	Save(ctx context.Context, r *Record) error

	// ListForCourse returns all records for a (user, course) pair, in
	// stable (module, content) order.
	ListForCourse(ctx context.Context, key shared.EnrollmentKey) ([]*Record, error)
}
