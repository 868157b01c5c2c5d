package certificate

import (
	"context"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// Repository persists certificates. Implementations must make CreateUnique
// safe under concurrent calls for the same pair: the postgres implementation
// relies on a unique constraint over (user_id, course_id), the in-memory one
// on a per-key mutex.
type Repository interface {
	// CreateUnique persists a new certificate. Returns
	// ErrCertificateAlreadyExists when the pair is already certified; the
	// caller then fetches and returns the existing record.
	CreateUnique(ctx context.Context, c *Certificate) error

	// Get returns the certificate for the pair, or ErrCertificateNotFound.
	Get(ctx context.Context, key shared.EnrollmentKey) (*Certificate, error)

	// GetByNumber returns the certificate with the given number.
	GetByNumber(ctx context.Context, number string) (*Certificate, error)

	// CountByUser returns how many certificates a learner holds. Exposed
	// read-only to the subscription/usage layer.
	CountByUser(ctx context.Context, userID shared.UserID) (int, error)
}
