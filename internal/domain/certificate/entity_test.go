package certificate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

func testCertKey() shared.EnrollmentKey {
	return shared.EnrollmentKey{UserID: "user-1", CourseID: "course-go"}
}

func TestNewCertificate(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	c, err := New(testCertKey(), "https://cdn.learnhub.dev", now)
	require.NoError(t, err)

	assert.Equal(t, now, c.IssuedAt)
	assert.True(t, strings.HasPrefix(c.Number, "CERT-20260829-"))
	assert.Equal(t, "https://cdn.learnhub.dev/certificates/"+c.Number+".pdf", c.DownloadURL)
}

func TestNewCertificate_InvalidKey(t *testing.T) {
	_, err := New(shared.EnrollmentKey{}, "https://cdn.learnhub.dev", time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestGenerateNumber_Unique(t *testing.T) {
	now := time.Now().UTC()
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		n := GenerateNumber(testCertKey(), now)
		assert.False(t, seen[n], "duplicate certificate number %s", n)
		seen[n] = true
	}
}

func TestVerifyNumber(t *testing.T) {
	now := time.Now().UTC()
	number := GenerateNumber(testCertKey(), now)

	assert.True(t, VerifyNumber(number, testCertKey()))

	other := shared.EnrollmentKey{UserID: "user-2", CourseID: "course-go"}
	assert.False(t, VerifyNumber(number, other), "check segment is pair-bound")
	assert.False(t, VerifyNumber("CERT-123", testCertKey()))
	assert.False(t, VerifyNumber("", testCertKey()))
}

func TestDownloadURL_TrimsTrailingSlash(t *testing.T) {
	assert.Equal(t,
		"https://cdn.learnhub.dev/certificates/N1.pdf",
		DownloadURL("https://cdn.learnhub.dev/", "N1"),
	)
}
