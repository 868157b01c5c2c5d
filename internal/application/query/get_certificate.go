package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/certificate"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CERTIFICATE QUERY
// Looks a certificate up by (user, course) pair or by certificate number.
// ══════════════════════════════════════════════════════════════════════════════

// GetCertificateQuery contains the query parameters. Either the pair or the
// number must be provided.
type GetCertificateQuery struct {
	// UserID + CourseID identify the pair.
	UserID   string
	CourseID string

	// Number looks the certificate up directly.
	Number string
}

// Validate validates the query parameters.
func (q *GetCertificateQuery) Validate() error {
	if q.Number != "" {
		return nil
	}
	if q.UserID == "" || q.CourseID == "" {
		return errors.New("get_certificate: either number or user_id + course_id is required")
	}
	return nil
}

// CertificateDTO is the query result.
type CertificateDTO struct {
	UserID      string    `json:"user_id"`
	CourseID    string    `json:"course_id"`
	Number      string    `json:"certificate_number"`
	IssuedAt    time.Time `json:"issued_at"`
	DownloadURL string    `json:"download_url"`

	// NumberVerified reports whether the check segment of the number
	// matches the pair it certifies.
	NumberVerified bool `json:"number_verified"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetCertificateHandler handles the GetCertificateQuery.
type GetCertificateHandler struct {
	certificateRepo certificate.Repository
}

// NewGetCertificateHandler creates a new handler.
func NewGetCertificateHandler(certificateRepo certificate.Repository) *GetCertificateHandler {
	return &GetCertificateHandler{certificateRepo: certificateRepo}
}

// Handle executes the query.
func (h *GetCertificateHandler) Handle(ctx context.Context, q GetCertificateQuery) (*CertificateDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		cert *certificate.Certificate
		err  error
	)
	if q.Number != "" {
		cert, err = h.certificateRepo.GetByNumber(ctx, q.Number)
	} else {
		var key shared.EnrollmentKey
		key, err = queryKey(q.UserID, q.CourseID)
		if err != nil {
			return nil, fmt.Errorf("get_certificate: %w", err)
		}
		cert, err = h.certificateRepo.Get(ctx, key)
	}
	if err != nil {
		if errors.Is(err, certificate.ErrCertificateNotFound) {
			return nil, certificate.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("get_certificate: lookup failed: %w", err)
	}

	return &CertificateDTO{
		UserID:         cert.UserID.String(),
		CourseID:       cert.CourseID.String(),
		Number:         cert.Number,
		IssuedAt:       cert.IssuedAt,
		DownloadURL:    cert.DownloadURL,
		NumberVerified: certificate.VerifyNumber(cert.Number, cert.Key()),
	}, nil
}
