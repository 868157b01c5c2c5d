// Package certificate contains the certificate aggregate: a unique,
// idempotently issued proof of course completion. Exactly one certificate
// exists per (user, course); repeated issue requests return the existing
// record unchanged.
package certificate

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// Certificate domain errors. ErrCertificateAlreadyExists never reaches
// callers: the issuer suppresses it into idempotent success.
var (
	ErrCertificateNotFound      = shared.NewDomainError("certificate", "Find", shared.ErrNotFound, "certificate not found")
	ErrCertificateAlreadyExists = shared.NewDomainError("certificate", "Issue", shared.ErrAlreadyExists, "certificate already exists for this course")
	ErrCourseNotCompleted       = shared.NewDomainError("certificate", "Issue", shared.ErrInvalidState, "course is not completed")
)

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Certificate is the issued proof of completion for a (user, course) pair.
type Certificate struct {
	// UserID identifies the learner.
	UserID shared.UserID

	// CourseID identifies the completed course.
	CourseID shared.CourseID

	// Number is the globally unique certificate number.
	Number string

	// IssuedAt is when the certificate was first issued. Idempotent
	// re-issues keep the original timestamp.
	IssuedAt time.Time

	// DownloadURL is where the rendered certificate can be fetched.
	DownloadURL string
}

// Key returns the (user, course) aggregate key.
func (c *Certificate) Key() shared.EnrollmentKey {
	return shared.EnrollmentKey{UserID: c.UserID, CourseID: c.CourseID}
}

// New issues a certificate for the pair with a freshly generated number.
func New(key shared.EnrollmentKey, baseURL string, now time.Time) (*Certificate, error) {
	if !key.IsValid() {
		return nil, shared.NewDomainError("certificate", "New", shared.ErrInvalidID, "invalid enrollment key")
	}

	number := GenerateNumber(key, now)
	return &Certificate{
		UserID:      key.UserID,
		CourseID:    key.CourseID,
		Number:      number,
		IssuedAt:    now,
		DownloadURL: DownloadURL(baseURL, number),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// NUMBER GENERATION
// ══════════════════════════════════════════════════════════════════════════════

// GenerateNumber builds a globally unique certificate number:
//
//	CERT-<yyyymmdd>-<random>-<check>
//
// The date prefix keeps numbers human-sortable, the random segment comes
// from a v4 UUID, and the check segment is a SHAKE-derived digest of the
// pair and the random segment so a number can be sanity-checked offline.
// Uniqueness is ultimately enforced by the store's unique constraint.
func GenerateNumber(key shared.EnrollmentKey, now time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("CERT-%s-%s-%s", now.UTC().Format("20060102"), random, checksum(key, random))
}

// checksum derives a short verification segment from the pair and the
// random segment.
func checksum(key shared.EnrollmentKey, random string) string {
	digest := make([]byte, 3)
	shake := sha3.NewShake256()
	shake.Write([]byte(key.String()))
	shake.Write([]byte(random))
	shake.Read(digest)
	return strings.ToUpper(hex.EncodeToString(digest))
}

// VerifyNumber checks the structural validity of a certificate number and
// its check segment against the pair it claims to certify.
func VerifyNumber(number string, key shared.EnrollmentKey) bool {
	parts := strings.Split(number, "-")
	if len(parts) != 4 || parts[0] != "CERT" {
		return false
	}
	return checksum(key, parts[2]) == parts[3]
}

// DownloadURL builds the download location for a certificate number.
func DownloadURL(baseURL, number string) string {
	return fmt.Sprintf("%s/certificates/%s.pdf", strings.TrimRight(baseURL, "/"), number)
}
