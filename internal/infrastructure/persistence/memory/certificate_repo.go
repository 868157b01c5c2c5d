package memory

import (
	"context"
	"sync"

	"github.com/learnhub/enrollment-hub/internal/domain/certificate"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// CertificateRepository implements certificate.Repository in memory.
type CertificateRepository struct {
	mu       sync.RWMutex
	byKey    map[string]*certificate.Certificate
	byNumber map[string]*certificate.Certificate
}

// NewCertificateRepository creates an empty in-memory certificate repository.
func NewCertificateRepository() *CertificateRepository {
	return &CertificateRepository{
		byKey:    make(map[string]*certificate.Certificate),
		byNumber: make(map[string]*certificate.Certificate),
	}
}

// CreateUnique persists a new certificate. The map mutex plays the role of
// the postgres unique constraint: the first writer wins, later writers get
// ErrCertificateAlreadyExists and fetch the existing record.
func (r *CertificateRepository) CreateUnique(ctx context.Context, c *certificate.Certificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byKey[c.Key().String()]; ok {
		return certificate.ErrCertificateAlreadyExists
	}

	stored := *c
	r.byKey[c.Key().String()] = &stored
	r.byNumber[c.Number] = &stored
	return nil
}

// Get returns the certificate for the pair.
func (r *CertificateRepository) Get(ctx context.Context, key shared.EnrollmentKey) (*certificate.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byKey[key.String()]
	if !ok {
		return nil, certificate.ErrCertificateNotFound
	}
	copied := *c
	return &copied, nil
}

// GetByNumber returns the certificate with the given number.
func (r *CertificateRepository) GetByNumber(ctx context.Context, number string) (*certificate.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byNumber[number]
	if !ok {
		return nil, certificate.ErrCertificateNotFound
	}
	copied := *c
	return &copied, nil
}

// CountByUser returns how many certificates a learner holds.
func (r *CertificateRepository) CountByUser(ctx context.Context, userID shared.UserID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.byKey {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}
