package postgres

import (
	"context"
	"fmt"

	"github.com/learnhub/enrollment-hub/internal/domain/certificate"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// CertificateRepository implements certificate.Repository over PostgreSQL.
type CertificateRepository struct {
	conn *Connection
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(conn *Connection) *CertificateRepository {
	return &CertificateRepository{conn: conn}
}

// CreateUnique persists a new certificate. The primary key on the pair is
// the idempotency guard: concurrent issuers across instances race on the
// insert and all but one get ErrCertificateAlreadyExists.
func (r *CertificateRepository) CreateUnique(ctx context.Context, c *certificate.Certificate) error {
	query := `
		INSERT INTO certificates (user_id, course_id, certificate_number, issued_at, download_url)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		c.UserID.String(), c.CourseID.String(), c.Number, c.IssuedAt, c.DownloadURL,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return certificate.ErrCertificateAlreadyExists
		}
		return fmt.Errorf("postgres: failed to create certificate: %w", err)
	}
	return nil
}

// Get returns the certificate for the pair.
func (r *CertificateRepository) Get(ctx context.Context, key shared.EnrollmentKey) (*certificate.Certificate, error) {
	query := `
		SELECT user_id, course_id, certificate_number, issued_at, download_url
		FROM certificates
		WHERE user_id = $1 AND course_id = $2
	`

	return r.scanOne(r.conn.QueryRow(ctx, query, key.UserID.String(), key.CourseID.String()))
}

// GetByNumber returns the certificate with the given number.
func (r *CertificateRepository) GetByNumber(ctx context.Context, number string) (*certificate.Certificate, error) {
	query := `
		SELECT user_id, course_id, certificate_number, issued_at, download_url
		FROM certificates
		WHERE certificate_number = $1
	`

	return r.scanOne(r.conn.QueryRow(ctx, query, number))
}

// CountByUser returns how many certificates a learner holds.
func (r *CertificateRepository) CountByUser(ctx context.Context, userID shared.UserID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM certificates WHERE user_id = $1`,
		userID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to count certificates: %w", err)
	}
	return count, nil
}

func (r *CertificateRepository) scanOne(row rowScanner) (*certificate.Certificate, error) {
	var (
		c        certificate.Certificate
		userID   string
		courseID string
	)

	err := row.Scan(&userID, &courseID, &c.Number, &c.IssuedAt, &c.DownloadURL)
	if err != nil {
		if IsNoRows(err) {
			return nil, certificate.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("postgres: failed to scan certificate: %w", err)
	}

	c.UserID = shared.UserID(userID)
	c.CourseID = shared.CourseID(courseID)
	return &c, nil
}
